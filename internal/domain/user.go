package domain

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// User is the durable role assignment record, the writable system of
// record of last resort. Email is the unique key; the provider subject
// id is indexed but non-unique so linked-login merges can move a record
// to a new provider identity without losing history.
type User struct {
	ID            uuid.UUID  `json:"id"`
	SubjectID     string     `json:"subject_id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	Role          Role       `json:"role"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	RoleUpdatedAt *time.Time `json:"role_updated_at,omitempty"`
	RoleUpdatedBy string     `json:"role_updated_by,omitempty"`
}

// NewUser creates a user record with the default role.
func NewUser(subjectID, email, displayName string) (*User, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email format: %w", err)
	}

	return &User{
		ID:          uuid.New(),
		SubjectID:   subjectID,
		Email:       email,
		DisplayName: displayName,
		Role:        DefaultRole,
		CreatedAt:   time.Now(),
	}, nil
}

// Profile projects the record into its short-TTL cacheable form.
func (u *User) Profile() CachedProfile {
	return CachedProfile{
		SubjectID: u.SubjectID,
		Email:     u.Email,
		Role:      u.Role,
		UserID:    u.ID.String(),
	}
}
