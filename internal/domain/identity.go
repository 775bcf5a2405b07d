package domain

import "time"

// ResolutionSource records where a resolved role came from. It drives
// diagnostics and the self-healing claim write-back: only roles that
// bypassed the claim channel need repairing.
type ResolutionSource string

const (
	SourceClaim   ResolutionSource = "claim"
	SourceCache   ResolutionSource = "cache"
	SourceStore   ResolutionSource = "store"
	SourceDefault ResolutionSource = "default"
)

// DecodedIdentity is the verified form of a bearer token, enriched with
// the resolved role. Tokens are immutable until expiry, so a decoded
// identity is safe to cache verbatim for the token's remaining lifetime.
type DecodedIdentity struct {
	SubjectID string           `json:"subject_id"`
	Email     string           `json:"email"`
	RoleClaim Role             `json:"role_claim,omitempty"` // empty when the token carried no role claim
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Role      Role             `json:"role"`
	Source    ResolutionSource `json:"source"`
	UserID    string           `json:"user_id,omitempty"` // internal user id, empty when unknown
}

// Remaining returns the token's remaining validity at the given instant.
func (d *DecodedIdentity) Remaining(now time.Time) time.Duration {
	return d.ExpiresAt.Sub(now)
}

// Context projects the identity into the shape attached to an
// authorized request.
func (d *DecodedIdentity) Context() *IdentityContext {
	return &IdentityContext{
		SubjectID: d.SubjectID,
		Email:     d.Email,
		Role:      d.Role,
		UserID:    d.UserID,
		Source:    d.Source,
	}
}

// IdentityContext is the authenticated-identity context handed to the
// route layer once a request is authorized.
type IdentityContext struct {
	SubjectID string           `json:"subject_id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	UserID    string           `json:"user_id,omitempty"`
	Source    ResolutionSource `json:"source"`
}

// CachedProfile is the short-TTL cached projection of a user record.
// Its TTL bounds the staleness window for role data that reached a
// request without going through the claim channel.
type CachedProfile struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	UserID    string `json:"user_id,omitempty"`
}

// Session tracks one active (identity, token) pair on one device.
// Sessions are grouped per subject; deleting the group is
// logout-everywhere.
type Session struct {
	SubjectID    string      `json:"subject_id"`
	Fingerprint  Fingerprint `json:"fingerprint"`
	Device       string      `json:"device,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
	TokenExpires time.Time   `json:"token_expires"`
}
