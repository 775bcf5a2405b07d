package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"auth-gateway/internal/domain"
)

// UserRepository implements domain.UserRepository for PostgreSQL.
//
// Email is the unique key. The provider subject id is indexed but
// non-unique so a linked-login merge can repoint a record to a new
// provider identity; lookups by subject id take the newest record.
type UserRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewUserRepository creates a PostgreSQL user repository.
func NewUserRepository(db DatabaseIface, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger.With("component", "user_repository"),
	}
}

const userColumns = `id, subject_id, email, display_name, role, created_at, last_login_at, role_updated_at, role_updated_by`

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.SubjectID,
		&user.Email,
		&user.DisplayName,
		&role,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.RoleUpdatedAt,
		&user.RoleUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return user, nil
}

// FindBySubjectID returns the newest record for a provider subject id.
func (r *UserRepository) FindBySubjectID(ctx context.Context, subjectID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	user, err := r.scanUser(r.db.QueryRow(ctx, query, subjectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject id: %w", err)
	}
	return user, nil
}

// FindByEmail returns the record for an email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	user, err := r.scanUser(r.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (
			id, subject_id, email, display_name, role, created_at,
			last_login_at, role_updated_at, role_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.SubjectID,
		user.Email,
		user.DisplayName,
		string(user.Role),
		user.CreatedAt,
		user.LastLoginAt,
		user.RoleUpdatedAt,
		user.RoleUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("user created", "subject_id", user.SubjectID, "role", user.Role)
	return nil
}

// List returns users ordered by creation time, newest first.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateRole sets the role with audit fields. Per-document atomic; the
// claim-channel and cache sync that follow are compensated separately.
func (r *UserRepository) UpdateRole(ctx context.Context, subjectID string, role domain.Role, updatedBy string) error {
	query := `UPDATE users
		SET role = $2, role_updated_at = now(), role_updated_by = $3
		WHERE subject_id = $1`

	tag, err := r.db.Exec(ctx, query, subjectID, string(role), updatedBy)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	r.logger.Info("role updated",
		"subject_id", subjectID,
		"role", role,
		"updated_by", updatedBy)
	return nil
}

// TouchLastLogin records login activity. Missing records are ignored;
// the touch is best-effort bookkeeping.
func (r *UserRepository) TouchLastLogin(ctx context.Context, subjectID string) error {
	query := `UPDATE users SET last_login_at = now() WHERE subject_id = $1`

	if _, err := r.db.Exec(ctx, query, subjectID); err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}
	return nil
}

// Delete removes a user record.
func (r *UserRepository) Delete(ctx context.Context, subjectID string) error {
	query := `DELETE FROM users WHERE subject_id = $1`

	tag, err := r.db.Exec(ctx, query, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}

	r.logger.Info("user deleted", "subject_id", subjectID)
	return nil
}
