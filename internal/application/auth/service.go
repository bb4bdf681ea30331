package auth

import (
	"context"
	"errors"
	"time"

	"github.com/erp/taxsync/internal/domain/company"
	"github.com/erp/taxsync/internal/domain/session"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/erp/taxsync/internal/infrastructure/taxauthority"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionService manages the session lifecycle against the tax authority:
// reuse before login, cooldown after repeated failures, and at most one
// active session per tenant.
type SessionService struct {
	sessions session.Store
	resolver CredentialSource
	remote   taxauthority.Client
	failures *FailureTracker
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(
	sessions session.Store,
	resolver CredentialSource,
	remote taxauthority.Client,
	failures *FailureTracker,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		resolver: resolver,
		remote:   remote,
		failures: failures,
		logger:   logger.Named("session_service"),
		now:      time.Now,
	}
}

// Authenticate returns a live session for the tenant. Caller-supplied
// credentials are checked for completeness before anything else; an
// existing valid session is then reused without any remote call, and a
// tenant in cooldown is rejected before the remote service is touched.
// Every failed path feeds the failure counter, every success clears it.
func (s *SessionService) Authenticate(ctx context.Context, input AuthenticateInput) (*SessionDescriptor, error) {
	tenantID, err := s.normalizeTenantID(input.TenantID)
	if err != nil {
		return nil, err
	}

	if input.Credentials != nil {
		provided := *input.Credentials
		provided.TaxID = tenantID
		if field := provided.FirstMissingField(); field != "" {
			s.failures.RecordFailure(tenantID)
			return nil, NewMissingCredentialError(field)
		}
	}

	existing, err := s.sessions.GetValid(ctx, tenantID)
	if err == nil {
		s.logger.Debug("Reusing valid session", zap.String("tenant_id", tenantID))
		if terr := s.sessions.Touch(ctx, existing.ID, s.now()); terr != nil {
			s.logger.Warn("Failed to record session usage",
				zap.String("tenant_id", tenantID),
				zap.Error(terr),
			)
		}
		return s.describe(existing, true), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.failures.RecordFailure(tenantID)
		return nil, err
	}

	if blocked, remaining := s.failures.Blocked(tenantID); blocked {
		s.logger.Warn("Tenant in authentication cooldown",
			zap.String("tenant_id", tenantID),
			zap.Int("remaining_seconds", remaining),
		)
		return nil, NewRateLimitedError(remaining)
	}

	creds, err := s.resolveCredentials(ctx, tenantID, input.Credentials)
	if err != nil {
		s.failures.RecordFailure(tenantID)
		return nil, err
	}

	token, err := s.remote.Login(ctx, taxauthority.Credentials{
		TaxID:        creds.TaxID,
		Username:     creds.Username,
		Password:     creds.Password,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	})
	if err != nil {
		s.failures.RecordFailure(tenantID)
		s.logger.Warn("Remote login failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	sess := session.New(
		tenantID,
		token.AccessToken,
		token.TokenType,
		token.RefreshToken,
		session.Fingerprint(creds.TaxID, creds.Username, creds.ClientID),
		token.ExpiresAt,
	)
	if err := s.sessions.Store(ctx, sess); err != nil {
		s.failures.RecordFailure(tenantID)
		return nil, err
	}
	s.failures.Reset(tenantID)

	s.logger.Info("Session established",
		zap.String("tenant_id", tenantID),
		zap.Time("expires_at", sess.ExpiresAt),
	)
	return s.describe(sess, false), nil
}

// Logout revokes every active session for the tenant and clears its
// failure counter. Logging out with nothing to revoke succeeds with a
// zero count.
func (s *SessionService) Logout(ctx context.Context, rawTenantID string) (*LogoutResult, error) {
	tenantID, err := s.normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}

	count, err := s.sessions.Revoke(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.failures.Reset(tenantID)

	s.logger.Info("Sessions revoked", zap.String("tenant_id", tenantID), zap.Int64("count", count))
	return &LogoutResult{TenantID: tenantID, RevokedSessions: count}, nil
}

// GetStatus reports session liveness and remote reachability. The probe is
// purely observational: its outcome never touches sessions or counters.
func (s *SessionService) GetStatus(ctx context.Context, rawTenantID string) (*Status, error) {
	tenantID, err := s.normalizeTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}

	status := &Status{TenantID: tenantID}

	sess, err := s.sessions.GetValid(ctx, tenantID)
	switch {
	case err == nil:
		status.HasActiveSession = true
		status.ExpiresAt = &sess.ExpiresAt
		status.RemainingSeconds = sess.RemainingSeconds(s.now())
	case errors.Is(err, shared.ErrNotFound):
		// No live session is a normal status
	default:
		return nil, err
	}

	if err := s.remote.HealthCheck(ctx); err == nil {
		status.RemoteReachable = true
	} else {
		s.logger.Debug("Remote health probe failed", zap.Error(err))
	}

	return status, nil
}

// ValidateToken reports what is known about a token: the stored session
// row, if any, and the token's unverified claims.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, shared.ErrInvalidInput
	}

	info := &TokenInfo{}

	sess, err := s.sessions.Info(ctx, token)
	switch {
	case err == nil:
		info.Known = true
		info.TenantID = sess.TenantID
		info.Status = string(sess.Status)
		info.ExpiresAt = &sess.ExpiresAt
		info.RemainingSeconds = sess.RemainingSeconds(s.now())
		info.Fingerprint = sess.Fingerprint
	case errors.Is(err, shared.ErrNotFound):
		// Unknown tokens still get their claims decoded
	default:
		return nil, err
	}

	info.Claims = decodeClaims(token)
	return info, nil
}

func (s *SessionService) describe(sess *session.Session, reused bool) *SessionDescriptor {
	return &SessionDescriptor{
		SessionID:        sess.ID.String(),
		TenantID:         sess.TenantID,
		Token:            sess.Token,
		TokenType:        sess.TokenType,
		ExpiresAt:        sess.ExpiresAt,
		RemainingSeconds: sess.RemainingSeconds(s.now()),
		Reused:           reused,
		Fingerprint:      sess.Fingerprint,
	}
}

// normalizeTenantID strips formatting from the raw tenant ID. A wrong
// length is logged and tolerated; an ID with no digits at all is rejected.
func (s *SessionService) normalizeTenantID(raw string) (string, error) {
	normalized, ok := company.NormalizeTaxID(raw)
	if !ok {
		return "", NewInvalidTenantIDError(raw)
	}
	if !company.IsWellFormedTaxID(normalized) {
		s.logger.Warn("Tenant ID has unexpected length",
			zap.String("tenant_id", normalized),
			zap.Int("length", len(normalized)),
		)
	}
	return normalized, nil
}

// resolveCredentials prefers configured credentials over caller-provided
// ones and validates completeness of whichever bundle is chosen.
func (s *SessionService) resolveCredentials(ctx context.Context, tenantID string, provided *company.Credentials) (*company.Credentials, error) {
	creds, found := s.resolver.Resolve(ctx, tenantID)
	if !found {
		if provided == nil {
			return nil, NewMissingCredentialError("username")
		}
		c := *provided
		creds = &c
	}
	creds.TaxID = tenantID

	if field := creds.FirstMissingField(); field != "" {
		return nil, NewMissingCredentialError(field)
	}
	return creds, nil
}

// decodeClaims reads a JWT's claims without verifying its signature
func decodeClaims(token string) map[string]any {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return claims
}
