package tokensvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/infrastructure/rest"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	generatePath = "/api/tokens/generate"
	validatePath = "/api/tokens/validate"
)

type generateRequest struct {
	UserID int64 `json:"userId"`
}

type generateResponse struct {
	TokenValue string `json:"tokenValue"`
}

type validateRequest struct {
	TokenValue string `json:"tokenValue"`
}

// Client issues and validates verification tokens through the token service.
type Client struct {
	rest    *rest.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewClient(cfg config.ServiceEndpoint, m *metrics.Metrics, l *zap.Logger) *Client {
	return &Client{
		rest:    rest.New(cfg.URL, cfg.Timeout),
		metrics: m,
		logger:  logger.OrNop(l).With(zap.String("component", "token_client")),
	}
}

// Generate mints a token for userID. Any call that does not yield a usable
// token fails with domain.ErrTokenGeneration; the cause is only logged.
func (c *Client) Generate(ctx context.Context, userID int64) (string, error) {
	log := logger.WithContext(ctx, c.logger).With(zap.Int64("user_id", userID))

	var resp generateResponse
	err := c.rest.Do(ctx, http.MethodPost, generatePath, generateRequest{UserID: userID}, &resp)
	if err == nil && resp.TokenValue == "" {
		err = errors.New("response carries no token value")
	}
	if err != nil {
		log.Error("token generation failed", zap.Error(err))
		c.metrics.ObserveCall("token", "generate", "failed")
		return "", domain.ErrTokenGeneration
	}

	log.Info("token generated")
	c.metrics.ObserveCall("token", "generate", "ok")
	return resp.TokenValue, nil
}

// Validate checks token with the token service. A successful validation
// consumes the token on the service side.
func (c *Client) Validate(ctx context.Context, token string) (*domain.TokenValidationOutcome, error) {
	log := logger.WithContext(ctx, c.logger)
	log.Info("validating token")

	var outcome domain.TokenValidationOutcome
	if err := c.rest.Do(ctx, http.MethodPost, validatePath, validateRequest{TokenValue: token}, &outcome); err != nil {
		kind, label := classify(err)
		log.Error("token validation failed", zap.String("token_ref", tokenRef(token)), zap.String("kind", label), zap.Error(err))
		c.metrics.ObserveCall("token", "validate", label)
		if kind == domain.ErrTokenServiceUnavailable {
			return nil, kind
		}
		return nil, fmt.Errorf("%w: %s", kind, token)
	}
	// The service answered but did not vouch for the token.
	if !outcome.Valid {
		log.Warn("token reported invalid", zap.String("token_ref", tokenRef(token)))
		c.metrics.ObserveCall("token", "validate", "not_found")
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, token)
	}

	c.metrics.ObserveCall("token", "validate", "ok")
	return &outcome, nil
}

// tokenRef identifies a token in logs without revealing it.
func tokenRef(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}

// classify maps a failed validate call onto the token error kinds.
func classify(err error) (error, string) {
	switch rest.StatusCode(err) {
	case http.StatusNotFound:
		return domain.ErrTokenNotFound, "not_found"
	case http.StatusGone:
		return domain.ErrTokenExpired, "expired"
	case http.StatusConflict:
		return domain.ErrTokenAlreadyUsed, "already_used"
	default:
		return domain.ErrTokenServiceUnavailable, "unavailable"
	}
}
