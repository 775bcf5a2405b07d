package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auth-gateway/internal/domain"
)

// CreateUserInput carries a provisioning request.
type CreateUserInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        domain.Role
}

// ManageUsers provisions and removes accounts.
//
// Provisioning writes the provider first so the role claim exists before
// the first token is minted, then the durable record; a record failure
// rolls the provider identity back. Removal revokes sessions first so no
// cached token outlives the account.
type ManageUsers struct {
	users    domain.UserRepository
	provider domain.IdentityAdmin
	revoker  *ManageSessions
	logger   *slog.Logger
}

// NewManageUsers creates the user management usecase.
func NewManageUsers(
	users domain.UserRepository,
	provider domain.IdentityAdmin,
	revoker *ManageSessions,
	logger *slog.Logger,
) *ManageUsers {
	return &ManageUsers{
		users:    users,
		provider: provider,
		revoker:  revoker,
		logger:   logger.With("component", "manage_users"),
	}
}

// Create provisions a new account with the given role.
func (uc *ManageUsers) Create(ctx context.Context, actor *domain.IdentityContext, input CreateUserInput) (*domain.User, error) {
	if !input.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !actor.Role.CanManage(input.Role) {
		return nil, domain.ErrInsufficientPrivilege
	}

	_, err := uc.users.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case errors.Is(err, domain.ErrUserNotFound):
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	subjectID, err := uc.provider.CreateIdentity(ctx, input.Email, input.Password, input.DisplayName, input.Role)
	if err != nil {
		return nil, err
	}

	user, err := domain.NewUser(subjectID, input.Email, input.DisplayName)
	if err != nil {
		uc.rollbackIdentity(ctx, subjectID)
		return nil, err
	}
	user.Role = input.Role

	if err := uc.users.Create(ctx, user); err != nil {
		uc.rollbackIdentity(ctx, subjectID)
		return nil, err
	}

	uc.logger.Info("user provisioned",
		"actor", actor.SubjectID,
		"subject_id", subjectID,
		"role", input.Role)
	return user, nil
}

// rollbackIdentity undoes a provider-side creation after a local
// failure. A rollback failure leaves an orphan identity with no local
// record; it resolves to the default role and is harmless beyond noise.
func (uc *ManageUsers) rollbackIdentity(ctx context.Context, subjectID string) {
	if err := uc.provider.DeleteIdentity(ctx, subjectID); err != nil {
		uc.logger.Error("identity rollback failed",
			"subject_id", subjectID,
			"error", err)
	}
}

// Delete removes an account: sessions are revoked, the provider identity
// is deleted, then the durable record.
func (uc *ManageUsers) Delete(ctx context.Context, actor *domain.IdentityContext, subjectID string) error {
	if actor.SubjectID == subjectID {
		return domain.ErrSelfOperation
	}

	target, err := uc.users.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return err
	}
	if !actor.Role.CanManage(target.Role) {
		return domain.ErrInsufficientPrivilege
	}

	if _, err := uc.revoker.RevokeAll(ctx, subjectID); err != nil {
		return err
	}

	if err := uc.provider.DeleteIdentity(ctx, subjectID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	if err := uc.users.Delete(ctx, subjectID); err != nil {
		return err
	}

	uc.logger.Info("user removed",
		"actor", actor.SubjectID,
		"subject_id", subjectID)
	return nil
}

// RevokeSessions force-logs-out every device of a managed user.
func (uc *ManageUsers) RevokeSessions(ctx context.Context, actor *domain.IdentityContext, subjectID string) (int, error) {
	target, err := uc.users.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if !actor.Role.CanManage(target.Role) {
		return 0, domain.ErrInsufficientPrivilege
	}
	return uc.revoker.RevokeAll(ctx, subjectID)
}

// List returns a page of users. Admin and above only.
func (uc *ManageUsers) List(ctx context.Context, actor *domain.IdentityContext, offset, limit int) ([]*domain.User, error) {
	if !actor.Role.Satisfies(domain.RoleAdmin) {
		return nil, domain.ErrInsufficientPrivilege
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return uc.users.List(ctx, offset, limit)
}
