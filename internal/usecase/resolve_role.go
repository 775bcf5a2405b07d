package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auth-gateway/internal/domain"
)

// ResolveRole determines the effective role for a verified identity.
//
// The cascade is claim, profile cache, durable store, default. A role
// claim carried by the token wins outright and touches no local state.
// Roles that reach the request from the cache or the store bypassed the
// claim channel, so a repair is scheduled to write the claim back.
type ResolveRole struct {
	profiles           domain.ProfileCache
	users              domain.UserRepository
	repairs            domain.RepairScheduler
	profileTTL         time.Duration
	allowUnprovisioned bool
	logger             *slog.Logger
}

// NewResolveRole creates a role resolver.
func NewResolveRole(
	profiles domain.ProfileCache,
	users domain.UserRepository,
	repairs domain.RepairScheduler,
	profileTTL time.Duration,
	allowUnprovisioned bool,
	logger *slog.Logger,
) *ResolveRole {
	return &ResolveRole{
		profiles:           profiles,
		users:              users,
		repairs:            repairs,
		profileTTL:         profileTTL,
		allowUnprovisioned: allowUnprovisioned,
		logger:             logger.With("component", "resolve_role"),
	}
}

// Execute fills in Role, Source and UserID on the identity.
func (uc *ResolveRole) Execute(ctx context.Context, identity *domain.DecodedIdentity) error {
	if identity.RoleClaim.Valid() {
		identity.Role = identity.RoleClaim
		identity.Source = domain.SourceClaim
		return nil
	}

	profile, found, err := uc.profiles.Get(ctx, identity.SubjectID)
	if err != nil {
		uc.logger.Warn("profile cache read failed",
			"subject_id", identity.SubjectID,
			"error", err)
	}
	if found {
		identity.Role = profile.Role
		identity.Source = domain.SourceCache
		identity.UserID = profile.UserID
		uc.repairs.Schedule(identity.SubjectID)
		return nil
	}

	user, err := uc.users.FindBySubjectID(ctx, identity.SubjectID)
	switch {
	case err == nil:
		identity.Role = user.Role
		identity.Source = domain.SourceStore
		identity.UserID = user.ID.String()

		if cacheErr := uc.profiles.Put(ctx, identity.SubjectID, domain.CachedProfile{
			SubjectID: user.SubjectID,
			Email:     user.Email,
			Role:      user.Role,
			UserID:    user.ID.String(),
		}, uc.profileTTL); cacheErr != nil {
			uc.logger.Warn("profile cache write failed",
				"subject_id", identity.SubjectID,
				"error", cacheErr)
		}
		uc.repairs.Schedule(identity.SubjectID)
		return nil

	case errors.Is(err, domain.ErrUserNotFound):
		if !uc.allowUnprovisioned {
			return domain.ErrUnprovisioned
		}
		identity.Role = domain.DefaultRole
		identity.Source = domain.SourceDefault
		uc.logger.Info("unprovisioned identity resolved to default role",
			"subject_id", identity.SubjectID)
		return nil

	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
}
