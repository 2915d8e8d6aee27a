package enums

import "fmt"

// UserStatus tracks the admin approval state of an account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

var validUserStatuses = []UserStatus{
	UserStatusPending,
	UserStatusApproved,
	UserStatusRejected,
}

var userStatusTransitions = map[UserStatus][]UserStatus{
	UserStatusPending:  {UserStatusApproved, UserStatusRejected},
	UserStatusRejected: {UserStatusApproved},
}

// String implements fmt.Stringer.
func (u UserStatus) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserStatus.
func (u UserStatus) IsValid() bool {
	for _, candidate := range validUserStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an admin may move the account from u to next.
func (u UserStatus) CanTransitionTo(next UserStatus) bool {
	for _, candidate := range userStatusTransitions[u] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseUserStatus converts raw input into a UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	for _, candidate := range validUserStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
