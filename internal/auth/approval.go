package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/internal/users"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	"github.com/angelmondragon/rentquote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/logger"
	"github.com/angelmondragon/rentquote-backend/pkg/mailer"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// ApprovalService lets administrators review pending signups.
type ApprovalService interface {
	List(ctx context.Context, status *enums.UserStatus, params pagination.Params) (pagination.Page[users.UserDTO], error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error)
	Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*users.UserDTO, error)
}

type approvalRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, status *enums.UserStatus, params pagination.Params) (pagination.Page[models.User], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, change users.StatusChange) error
}

// ApprovalServiceParams names the dependencies of the approval workflow.
type ApprovalServiceParams struct {
	UserRepo approvalRepository
	Mailer   mailer.Mailer
	Logger   *logger.Logger
}

type approvalService struct {
	users  approvalRepository
	mailer mailer.Mailer
	logg   *logger.Logger
	now    func() time.Time
}

// NewApprovalService builds the admin approval workflow.
func NewApprovalService(params ApprovalServiceParams) (ApprovalService, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &approvalService{
		users:  params.UserRepo,
		mailer: params.Mailer,
		logg:   params.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *approvalService) List(ctx context.Context, status *enums.UserStatus, params pagination.Params) (pagination.Page[users.UserDTO], error) {
	if status != nil && !status.IsValid() {
		return pagination.Page[users.UserDTO]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *status)
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[users.UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.users.List(ctx, status, params)
	if err != nil {
		return pagination.Page[users.UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return pagination.Map(page, func(u *models.User) users.UserDTO { return *users.FromModel(u) }), nil
}

func (s *approvalService) Approve(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.decide(ctx, adminID, userID, enums.UserStatusApproved, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, user, mailer.AccountApproved(recipientOf(user)))
	return users.FromModel(user), nil
}

func (s *approvalService) Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*users.UserDTO, error) {
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	user, err := s.decide(ctx, adminID, userID, enums.UserStatusRejected, reasonPtr)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, user, mailer.AccountRejected(recipientOf(user), reason))
	return users.FromModel(user), nil
}

func (s *approvalService) decide(ctx context.Context, adminID, userID uuid.UUID, next enums.UserStatus, reason *string) (*models.User, error) {
	if adminID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrators cannot change their own status")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.Status.CanTransitionTo(next) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move user from %s to %s", user.Status, next).
			WithDetails(map[string]any{"current_status": user.Status, "requested_status": next})
	}

	now := s.now()
	change := users.StatusChange{Status: next, Reason: reason, DecidedBy: adminID, DecidedAt: now}
	if err := s.users.UpdateStatus(ctx, userID, change); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user status")
	}

	user.Status = next
	user.StatusReason = reason
	user.UpdatedAt = now
	if next == enums.UserStatusApproved {
		user.ApprovedBy = &adminID
		user.ApprovedAt = &now
	}
	return user, nil
}

// notify sends the decision email; delivery failure never undoes the decision.
func (s *approvalService) notify(ctx context.Context, user *models.User, msg mailer.Message) {
	ctx = s.logg.WithFields(ctx, map[string]any{"target_user_id": user.ID.String(), "status": user.Status})
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logg.Error(ctx, "auth.approval.mail_failed", err)
		return
	}
	s.logg.Info(ctx, "auth.approval.mail_sent")
}

func recipientOf(user *models.User) mailer.Recipient {
	return mailer.Recipient{Email: user.Email, FirstName: user.FirstName, LastName: user.LastName}
}
