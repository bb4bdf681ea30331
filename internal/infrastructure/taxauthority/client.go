package taxauthority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/erp/taxsync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Classified remote errors. Callers branch on the code, not the message.
var (
	ErrAuthRejected = shared.NewDomainError("AUTH_REJECTED", "Authentication rejected by the tax authority")
	ErrTimeout      = shared.NewDomainError("TIMEOUT", "Tax authority request timed out")
	ErrConnectivity = shared.NewDomainError("CONNECTIVITY_ERROR", "Could not reach the tax authority")
	ErrUnknown      = shared.NewDomainError("UNKNOWN_ERROR", "Unexpected tax authority error")
)

// Credentials is the bundle sent on a login exchange
type Credentials struct {
	TaxID        string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// Token is the result of a successful login exchange. RefreshToken is
// empty when the remote service does not issue one.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresIn    int
	ExpiresAt    time.Time
}

// Summary is the remote per-period document summary
type Summary struct {
	TotalDocuments int64 `json:"total_documents"`
}

// Client abstracts the remote tax authority service
type Client interface {
	Login(ctx context.Context, creds Credentials) (*Token, error)
	FetchDocuments(ctx context.Context, accessToken, period string) ([]map[string]any, error)
	FetchSummary(ctx context.Context, accessToken, period string) (*Summary, error)
	HealthCheck(ctx context.Context) error
}

// HTTPClient talks to the tax authority over HTTPS. Every call is bounded
// by the configured timeout; transient failures are retried with a fixed
// delay, rejected credentials are not.
type HTTPClient struct {
	cfg    config.TaxAuthorityConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPClient creates a new HTTPClient
func NewHTTPClient(cfg config.TaxAuthorityConfig, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("taxauthority"),
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login exchanges credentials for an access token using the password grant.
// The remote service expects the username as the tax ID concatenated with
// the portal user.
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*Token, error) {
	endpoint := fmt.Sprintf("%s/clientessol/%s/oauth2/token/", c.cfg.AuthBaseURL, creds.ClientID)

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("scope", c.cfg.Scope)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("username", creds.TaxID+creds.Username)
	form.Set("password", creds.Password)

	var token *Token
	err := c.withRetries(ctx, "login", func() (retryable bool, err error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.client.Do(req)
		if err != nil {
			return true, classifyTransportError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var tr tokenResponse
			if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
				return false, ErrUnknown
			}
			if tr.AccessToken == "" {
				return false, ErrUnknown
			}
			token = &Token{
				AccessToken:  tr.AccessToken,
				TokenType:    tr.TokenType,
				RefreshToken: tr.RefreshToken,
				ExpiresIn:    tr.ExpiresIn,
				ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
			}
			return false, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			// Bad credentials are final, retrying would only burn attempts
			return false, ErrAuthRejected
		case resp.StatusCode >= 500:
			return true, ErrUnknown
		default:
			return false, ErrUnknown
		}
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

type documentsResponse struct {
	Documents []map[string]any `json:"comprobantes"`
}

// FetchDocuments retrieves the raw document list proposed by the tax
// authority for a period. Items are returned as loose maps; field naming
// is normalized downstream.
func (c *HTTPClient) FetchDocuments(ctx context.Context, accessToken, period string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/contribuyente/compras/propuesta/%s/comprobantes", c.cfg.APIBaseURL, period)

	var docs []map[string]any
	err := c.withRetries(ctx, "fetch_documents", func() (bool, error) {
		body, retryable, err := c.getJSON(ctx, endpoint, accessToken)
		if err != nil {
			return retryable, err
		}

		var dr documentsResponse
		if err := json.Unmarshal(body, &dr.Documents); err == nil {
			docs = dr.Documents
			return false, nil
		}
		if err := json.Unmarshal(body, &dr); err != nil {
			return false, ErrUnknown
		}
		docs = dr.Documents
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

type summaryResponse struct {
	TotalDocuments int64 `json:"totalDocumentos"`
}

// FetchSummary retrieves the remote document count for a period
func (c *HTTPClient) FetchSummary(ctx context.Context, accessToken, period string) (*Summary, error) {
	endpoint := fmt.Sprintf("%s/contribuyente/compras/propuesta/%s/resumen", c.cfg.APIBaseURL, period)

	var summary *Summary
	err := c.withRetries(ctx, "fetch_summary", func() (bool, error) {
		body, retryable, err := c.getJSON(ctx, endpoint, accessToken)
		if err != nil {
			return retryable, err
		}

		var sr summaryResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return false, ErrUnknown
		}
		summary = &Summary{TotalDocuments: sr.TotalDocuments}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// HealthCheck probes the remote service. An authentication status code
// still proves the service is reachable, so 401 and 403 count as healthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/status", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusForbidden:
		return nil
	default:
		return ErrUnknown
	}
}

// getJSON performs an authenticated GET and returns the raw body
func (c *HTTPClient) getJSON(ctx context.Context, endpoint, accessToken string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, ErrUnknown
		}
		return data, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrAuthRejected
	case resp.StatusCode >= 500:
		return nil, true, ErrUnknown
	default:
		return nil, false, ErrUnknown
	}
}

// withRetries runs fn up to the configured number of attempts with a fixed
// delay between them. The last classified error surfaces to the caller.
func (c *HTTPClient) withRetries(ctx context.Context, op string, fn func() (retryable bool, err error)) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}

		c.logger.Warn("Remote call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < c.cfg.MaxRetries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return classifyTransportError(ctx.Err())
			}
		}
	}
	return lastErr
}

// classifyTransportError maps transport failures to classified errors
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTimeout
		}
		return ErrConnectivity
	}
	if errors.Is(err, context.Canceled) {
		return ErrConnectivity
	}
	return ErrConnectivity
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
