package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"auth-gateway/internal/domain"
)

const (
	repairQueueSize   = 256
	repairMaxAttempts = 3
	repairBackoff     = time.Second
	resyncPageSize    = 100
)

// sessionRevoker is the slice of session management the repairer needs.
type sessionRevoker interface {
	RevokeAll(ctx context.Context, subjectID string) (int, error)
}

// repairTask is one queued reconciliation. revoke means the subject's
// sessions must also be revoked, which only role mutations request.
type repairTask struct {
	subjectID string
	revoke    bool
}

// ClaimRepairer heals the claim channel in the background.
//
// Whenever a role reaches a request without coming from a token claim,
// the resolver schedules the subject here and the worker writes the
// durable role back into the provider's metadata so future tokens carry
// it. Role mutations that could not finish their claim rewrite or
// session revocation inline land here too. Repairs are idempotent, so
// duplicate scheduling is harmless; a pending set still suppresses the
// obvious duplicates.
type ClaimRepairer struct {
	users   domain.UserRepository
	claims  domain.ClaimChannel
	revoker sessionRevoker
	queue   chan repairTask
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]bool
}

// NewClaimRepairer creates the repair worker.
func NewClaimRepairer(users domain.UserRepository, claims domain.ClaimChannel, revoker sessionRevoker, logger *slog.Logger) *ClaimRepairer {
	return &ClaimRepairer{
		users:   users,
		claims:  claims,
		revoker: revoker,
		queue:   make(chan repairTask, repairQueueSize),
		logger:  logger.With("component", "claim_repairer"),
		pending: make(map[string]bool),
	}
}

// Schedule enqueues a claim repair.
func (r *ClaimRepairer) Schedule(subjectID string) {
	r.enqueue(repairTask{subjectID: subjectID})
}

// ScheduleRevoke enqueues a claim repair that also revokes the
// subject's sessions.
func (r *ClaimRepairer) ScheduleRevoke(subjectID string) {
	r.enqueue(repairTask{subjectID: subjectID, revoke: true})
}

// enqueue never blocks the request path: when the queue is full the
// repair is dropped and will be rescheduled by the next resolution that
// misses the claim. A pending revoke task subsumes a plain one.
func (r *ClaimRepairer) enqueue(task repairTask) {
	r.mu.Lock()
	if revoke, dup := r.pending[task.subjectID]; dup && (revoke || !task.revoke) {
		r.mu.Unlock()
		return
	}
	r.pending[task.subjectID] = task.revoke
	r.mu.Unlock()

	select {
	case r.queue <- task:
	default:
		r.clearPending(task.subjectID)
		r.logger.Warn("repair queue full, dropping", "subject_id", task.subjectID)
	}
}

// Run processes repairs until the context is cancelled.
func (r *ClaimRepairer) Run(ctx context.Context) error {
	r.logger.Info("claim repair worker started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("claim repair worker stopped")
			return nil
		case task := <-r.queue:
			r.repair(ctx, task)
			r.clearPending(task.subjectID)
		}
	}
}

func (r *ClaimRepairer) repair(ctx context.Context, task repairTask) {
	user, err := r.users.FindBySubjectID(ctx, task.subjectID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Nothing durable to sync; the default role is never written back.
		return
	}
	if err != nil {
		r.logger.Warn("repair lookup failed", "subject_id", task.subjectID, "error", err)
		return
	}

	if task.revoke {
		if err := r.retry(ctx, func() error {
			_, err := r.revoker.RevokeAll(ctx, task.subjectID)
			return err
		}); err != nil {
			r.logger.Error("session revocation repair failed",
				"subject_id", task.subjectID,
				"attempts", repairMaxAttempts,
				"error", err)
		}
	}

	if err := r.retry(ctx, func() error {
		return r.claims.SetRoleClaim(ctx, task.subjectID, user.Role)
	}); err != nil {
		r.logger.Error("claim repair failed",
			"subject_id", task.subjectID,
			"attempts", repairMaxAttempts,
			"error", err)
		return
	}
	r.logger.Info("claim repaired", "subject_id", task.subjectID, "role", user.Role)
}

// retry runs op up to repairMaxAttempts times with linear backoff.
func (r *ClaimRepairer) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= repairMaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < repairMaxAttempts {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(repairBackoff * time.Duration(attempt)):
			}
		}
	}
	return err
}

func (r *ClaimRepairer) clearPending(subjectID string) {
	r.mu.Lock()
	delete(r.pending, subjectID)
	r.mu.Unlock()
}

// ResyncAll walks the whole user store and rewrites every role claim.
// It returns the number of synced users and the number of failures.
func (r *ClaimRepairer) ResyncAll(ctx context.Context) (synced, failed int, err error) {
	for offset := 0; ; offset += resyncPageSize {
		users, err := r.users.List(ctx, offset, resyncPageSize)
		if err != nil {
			return synced, failed, err
		}
		if len(users) == 0 {
			break
		}
		for _, user := range users {
			if err := r.claims.SetRoleClaim(ctx, user.SubjectID, user.Role); err != nil {
				failed++
				r.logger.Warn("resync failed for user",
					"subject_id", user.SubjectID,
					"error", err)
				continue
			}
			synced++
		}
		if len(users) < resyncPageSize {
			break
		}
	}
	r.logger.Info("claim resync complete", "synced", synced, "failed", failed)
	return synced, failed, nil
}
