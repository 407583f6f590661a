package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/zap"
)

// PasswordResetter starts the provider's password recovery flow.
type PasswordResetter interface {
	RequestPasswordReset(ctx context.Context, address string) error
}

// ProviderClient talks to the hosted identity provider's REST endpoints.
type ProviderClient struct {
	baseURL     string
	apiKey      string
	redirectURL string
	http        *http.Client
	log         *zap.Logger
}

func NewProviderClient(cfg config.Config, log *zap.Logger) *ProviderClient {
	return &ProviderClient{
		baseURL:     cfg.Auth.ProviderURL,
		apiKey:      cfg.Auth.APIKey,
		redirectURL: cfg.Auth.RedirectURL,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("identity.provider"),
	}
}

type recoverRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset asks the provider to email a reset link to address.
func (p *ProviderClient) RequestPasswordReset(ctx context.Context, address string) error {
	parsed, err := mail.ParseAddress(strings.TrimSpace(address))
	if err != nil {
		return ErrInvalidEmail
	}
	if p.baseURL == "" {
		return ErrNotConfigured
	}

	endpoint, err := url.Parse(p.baseURL + "/recover")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	if p.redirectURL != "" {
		query := endpoint.Query()
		query.Set("redirect_to", p.redirectURL)
		endpoint.RawQuery = query.Encode()
	}

	body, err := json.Marshal(recoverRequest{Email: parsed.Address})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		// unknown addresses are not disclosed to the caller
		p.log.Warn("password reset rejected by provider", zap.Int("status", resp.StatusCode))
	}
	return nil
}
