// Package gateway adapts the Ory Kratos APIs to the domain ports.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	kratos "github.com/ory/kratos-client-go"

	"auth-gateway/internal/domain"
)

// KratosGateway implements domain.TokenVerifier, domain.ClaimChannel and
// domain.IdentityAdmin. Verification goes through the public API; claim
// and identity management go through the Admin API over raw HTTP because
// the generated client does not cover JSON Patch on identity metadata.
type KratosGateway struct {
	client       *kratos.APIClient
	adminBaseURL string
	httpClient   *http.Client
	timeout      time.Duration
}

// NewKratosGateway creates a Kratos gateway with tuned HTTP transport.
func NewKratosGateway(baseURL, adminBaseURL string, timeout time.Duration) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: baseURL},
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
	configuration.HTTPClient = httpClient

	return &KratosGateway{
		client:       kratos.NewAPIClient(configuration),
		adminBaseURL: adminBaseURL,
		httpClient:   httpClient,
		timeout:      timeout,
	}
}

// Verify checks a session token against the provider and extracts the
// identity claims. It never mutates provider or local state.
func (g *KratosGateway) Verify(ctx context.Context, token string) (*domain.DecodedIdentity, error) {
	if token == "" {
		return nil, domain.ErrTokenMissing
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	session, resp, err := g.client.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, domain.ErrTokenInvalid
			}
			return nil, fmt.Errorf("%w: provider returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	if session.Active != nil && !*session.Active {
		return nil, domain.ErrTokenInvalid
	}
	if session.Identity == nil {
		return nil, domain.ErrTokenInvalid
	}

	identity := &domain.DecodedIdentity{
		SubjectID: session.Identity.Id,
	}

	if session.ExpiresAt != nil {
		identity.ExpiresAt = *session.ExpiresAt
		if time.Now().After(identity.ExpiresAt) {
			return nil, domain.ErrTokenExpired
		}
	}
	if session.AuthenticatedAt != nil {
		identity.IssuedAt = *session.AuthenticatedAt
	}

	if traits, ok := session.Identity.Traits.(map[string]interface{}); ok {
		if email, ok := traits["email"].(string); ok {
			identity.Email = email
		}
	}

	// Role claim lives in metadata_public, writable only through the
	// Admin API, so it is tamper-proof from the client's perspective.
	if meta, ok := session.Identity.MetadataPublic.(map[string]interface{}); ok {
		if roleStr, ok := meta["role"].(string); ok {
			if role, err := domain.ParseRole(roleStr); err == nil {
				identity.RoleClaim = role
			}
		}
	}

	return identity, nil
}

// jsonPatchOp is a single RFC 6902 patch operation.
type jsonPatchOp struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// SetRoleClaim writes the role into the identity's public metadata. The
// metadata_public object is owned by this service, so a whole-object
// replace is safe and works whether or not the object already exists.
func (g *KratosGateway) SetRoleClaim(ctx context.Context, subjectID string, role domain.Role) error {
	patch := []jsonPatchOp{
		{Op: "replace", Path: "/metadata_public", Value: map[string]string{"role": string(role)}},
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode metadata patch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/admin/identities/%s", g.adminBaseURL, subjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("%w: admin API returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
}

// createIdentityRequest is the Admin API identity creation payload.
type createIdentityRequest struct {
	SchemaID       string                 `json:"schema_id"`
	Traits         map[string]interface{} `json:"traits"`
	MetadataPublic map[string]string      `json:"metadata_public"`
	Credentials    struct {
		Password struct {
			Config struct {
				Password string `json:"password"`
			} `json:"config"`
		} `json:"password"`
	} `json:"credentials"`
}

// adminIdentity is the subset of the Admin API identity response we read.
type adminIdentity struct {
	ID string `json:"id"`
}

// CreateIdentity provisions a new identity with the role claim already
// set, so the first token it mints resolves without any local lookup.
func (g *KratosGateway) CreateIdentity(ctx context.Context, email, password, displayName string, role domain.Role) (string, error) {
	payload := createIdentityRequest{
		SchemaID: "default",
		Traits: map[string]interface{}{
			"email": email,
			"name":  displayName,
		},
		MetadataPublic: map[string]string{"role": string(role)},
	}
	payload.Credentials.Password.Config.Password = password

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode identity: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/admin/identities", g.adminBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return "", domain.ErrUserExists
	default:
		return "", fmt.Errorf("%w: admin API returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var identity adminIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	return identity.ID, nil
}

// DeleteIdentity removes an identity from the provider.
func (g *KratosGateway) DeleteIdentity(ctx context.Context, subjectID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/admin/identities/%s", g.adminBaseURL, subjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("%w: admin API returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
}
