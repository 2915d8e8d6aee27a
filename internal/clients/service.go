package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentquote-backend/pkg/db"
	"github.com/angelmondragon/rentquote-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentquote-backend/pkg/errors"
	"github.com/angelmondragon/rentquote-backend/pkg/pagination"
)

// Service manages the client directory.
type Service interface {
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[ClientDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ClientDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ClientInput) (*ClientDTO, error)
	Update(ctx context.Context, id uuid.UUID, input ClientInput) (*ClientDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("client repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[ClientDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[ClientDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.List(ctx, query, params)
	if err != nil {
		return pagination.Page[ClientDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}
	out := pagination.Page[ClientDTO]{Items: make([]ClientDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ClientDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ClientInput) (*ClientDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	row := &models.Client{CreatedBy: userID}
	input.apply(row)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create client")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input ClientInput) (*ClientDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	input.apply(row)
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client")
	}
	dto := FromModel(row)
	return &dto, nil
}

// Delete refuses to remove a client that still has quotes.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return notFoundOr(err)
		}
		count, err := repo.CountQuotes(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "client has %d quote(s)", count)
		}
		return repo.Delete(ctx, id)
	})
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete client")
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
}
