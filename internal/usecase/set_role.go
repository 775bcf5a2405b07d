package usecase

import (
	"context"
	"log/slog"

	"auth-gateway/internal/domain"
)

// SetRoleResult reports the outcome of a role change. Synced is false
// when the durable write landed but the provider-side claim did not;
// a repair has been scheduled in that case.
type SetRoleResult struct {
	SubjectID string      `json:"subject_id"`
	Role      domain.Role `json:"role"`
	Synced    bool        `json:"synced"`
}

// SetRole changes a user's role.
//
// The durable store is written first and is the source of truth. The
// claim channel and the profile cache are synchronized and the target's
// sessions revoked afterwards; a failure there degrades freshness, never
// correctness, and is healed asynchronously.
type SetRole struct {
	users    domain.UserRepository
	claims   domain.ClaimChannel
	profiles domain.ProfileCache
	repairs  domain.RepairScheduler
	revoker  *ManageSessions
	logger   *slog.Logger
}

// NewSetRole creates the role change usecase.
func NewSetRole(
	users domain.UserRepository,
	claims domain.ClaimChannel,
	profiles domain.ProfileCache,
	repairs domain.RepairScheduler,
	revoker *ManageSessions,
	logger *slog.Logger,
) *SetRole {
	return &SetRole{
		users:    users,
		claims:   claims,
		profiles: profiles,
		repairs:  repairs,
		revoker:  revoker,
		logger:   logger.With("component", "set_role"),
	}
}

// Execute changes the target's role on behalf of the actor. The actor
// must outrank both the target's current role and the new role, and may
// not change their own role.
func (uc *SetRole) Execute(ctx context.Context, actor *domain.IdentityContext, targetSubjectID string, newRole domain.Role) (*SetRoleResult, error) {
	if !newRole.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if actor.SubjectID == targetSubjectID {
		return nil, domain.ErrSelfOperation
	}

	target, err := uc.users.FindBySubjectID(ctx, targetSubjectID)
	if err != nil {
		return nil, err
	}

	if !actor.Role.CanManage(target.Role) || !actor.Role.CanManage(newRole) {
		uc.logger.Info("role change denied",
			"actor", actor.SubjectID,
			"actor_role", actor.Role,
			"target", targetSubjectID,
			"target_role", target.Role,
			"new_role", newRole)
		return nil, domain.ErrInsufficientPrivilege
	}

	if err := uc.users.UpdateRole(ctx, targetSubjectID, newRole, actor.SubjectID); err != nil {
		return nil, err
	}

	synced := true
	if err := uc.claims.SetRoleClaim(ctx, targetSubjectID, newRole); err != nil {
		synced = false
		uc.repairs.Schedule(targetSubjectID)
		uc.logger.Warn("claim sync failed, repair scheduled",
			"subject_id", targetSubjectID,
			"error", err)
	}

	if err := uc.profiles.Invalidate(ctx, targetSubjectID); err != nil {
		uc.logger.Warn("profile cache invalidation failed",
			"subject_id", targetSubjectID,
			"error", err)
	}

	// The target's outstanding tokens were issued under the old role, so
	// every session is revoked to force re-authentication.
	if _, err := uc.revoker.RevokeAll(ctx, targetSubjectID); err != nil {
		synced = false
		uc.repairs.ScheduleRevoke(targetSubjectID)
		uc.logger.Warn("session revocation failed, repair scheduled",
			"subject_id", targetSubjectID,
			"error", err)
	}

	uc.logger.Info("role changed",
		"actor", actor.SubjectID,
		"subject_id", targetSubjectID,
		"role", newRole,
		"synced", synced)
	return &SetRoleResult{SubjectID: targetSubjectID, Role: newRole, Synced: synced}, nil
}
