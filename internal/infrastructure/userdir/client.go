package userdir

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/infrastructure/rest"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/pkg/logger"
	"go.uber.org/zap"
)

// Client reads and updates email verification state in the user directory.
type Client struct {
	rest    *rest.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewClient(cfg config.ServiceEndpoint, m *metrics.Metrics, l *zap.Logger) *Client {
	return &Client{
		rest:    rest.New(cfg.URL, cfg.Timeout),
		metrics: m,
		logger:  logger.OrNop(l).With(zap.String("component", "user_directory_client")),
	}
}

// GetStatus fetches the current email and verification flag for userID.
func (c *Client) GetStatus(ctx context.Context, userID int64) (*domain.UserEmailStatus, error) {
	log := logger.WithContext(ctx, c.logger).With(zap.Int64("user_id", userID))
	log.Info("requesting email information")

	var status domain.UserEmailStatus
	if err := c.rest.Do(ctx, http.MethodGet, infoPath(userID), nil, &status); err != nil {
		log.Error("email information request failed", zap.Error(err))
		return nil, c.translate("status", userID, err)
	}

	c.metrics.ObserveCall("user", "status", "ok")
	log.Debug("email information retrieved", zap.Bool("verified", status.Verified))
	return &status, nil
}

// MarkVerified flags userID's email as verified.
func (c *Client) MarkVerified(ctx context.Context, userID int64) error {
	log := logger.WithContext(ctx, c.logger).With(zap.Int64("user_id", userID))
	log.Info("marking email as verified")

	if err := c.rest.Do(ctx, http.MethodPut, verifyPath(userID), nil, nil); err != nil {
		log.Error("mark email as verified failed", zap.Error(err))
		return c.translate("mark_verified", userID, err)
	}

	c.metrics.ObserveCall("user", "mark_verified", "ok")
	log.Info("email marked as verified")
	return nil
}

// translate maps a failed call onto the directory error kinds. Only 404 is
// meaningful; an empty success body, 5xx, transport errors and any other
// status collapse to ErrDirectoryUnavailable.
func (c *Client) translate(operation string, userID int64, err error) error {
	if rest.StatusCode(err) == http.StatusNotFound {
		c.metrics.ObserveCall("user", operation, "not_found")
		return fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
	}
	c.metrics.ObserveCall("user", operation, "unavailable")
	return domain.ErrDirectoryUnavailable
}

func infoPath(userID int64) string {
	return fmt.Sprintf("/api/email/%d/info", userID)
}

func verifyPath(userID int64) string {
	return fmt.Sprintf("/api/email/%d/verify-email", userID)
}
