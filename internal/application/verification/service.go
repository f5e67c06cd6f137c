package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-email-service/internal/application/notification"
	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/pkg/logger"
	"go.uber.org/zap"
)

const bodyPrefix = "Please click the following link to verify your email: "

const (
	workflowSend   = "send_verification"
	workflowVerify = "verify_email"
)

type tokenIssuer interface {
	Generate(ctx context.Context, userID int64) (string, error)
	Validate(ctx context.Context, token string) (*domain.TokenValidationOutcome, error)
}

type userDirectory interface {
	GetStatus(ctx context.Context, userID int64) (*domain.UserEmailStatus, error)
	MarkVerified(ctx context.Context, userID int64) error
}

type mailDispatcher interface {
	Send(ctx context.Context, msg domain.EmailMessage) *notification.Pending
}

type reconciler interface {
	Report(ctx context.Context, ev domain.ReconciliationEvent) error
}

type Service interface {
	// SendVerificationEmail mints a token for an unverified user and starts
	// delivery of the verification link. The returned Pending resolves with
	// the delivery outcome.
	SendVerificationEmail(ctx context.Context, req domain.VerificationRequest) (*notification.Pending, error)
	// VerifyEmail redeems token and marks its user as verified.
	VerifyEmail(ctx context.Context, token string) error
	// Shutdown waits for pending delivery reports or ctx to expire.
	Shutdown(ctx context.Context) error
}

// ServiceDeps groups the collaborators of the verification service.
// Reconciler, Metrics and Logger are optional.
type ServiceDeps struct {
	Tokens     tokenIssuer
	Directory  userDirectory
	Mailer     mailDispatcher
	Reconciler reconciler
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	BaseURL    string
	VerifyPath string
	Subject    string
}

type service struct {
	tokens     tokenIssuer
	directory  userDirectory
	mailer     mailDispatcher
	reconciler reconciler
	metrics    *metrics.Metrics
	logger     *zap.Logger
	linkPrefix string
	subject    string
	watchers   sync.WaitGroup
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tokens:     deps.Tokens,
		directory:  deps.Directory,
		mailer:     deps.Mailer,
		reconciler: deps.Reconciler,
		metrics:    deps.Metrics,
		logger:     logger.OrNop(deps.Logger).With(zap.String("component", "verification")),
		linkPrefix: deps.BaseURL + deps.VerifyPath + "?token=",
		subject:    deps.Subject,
	}
}

func (s *service) SendVerificationEmail(ctx context.Context, req domain.VerificationRequest) (*notification.Pending, error) {
	l := logger.WithContext(ctx, s.logger).With(zap.Int64("user_id", req.UserID))

	status, err := s.directory.GetStatus(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(workflowSend, err)
	}
	if status.Verified {
		return nil, s.fail(workflowSend, fmt.Errorf("user %d: %w", req.UserID, domain.ErrAlreadyVerified))
	}
	if status.Email == "" {
		return nil, s.fail(workflowSend, fmt.Errorf("user %d has no email address: %w", req.UserID, domain.ErrDirectoryUnavailable))
	}

	token, err := s.tokens.Generate(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(workflowSend, err)
	}

	p := s.mailer.Send(ctx, domain.EmailMessage{
		To:      status.Email,
		Subject: s.subject,
		Body:    bodyPrefix + s.linkPrefix + token,
	})
	l.Info("verification email dispatched", zap.String("dispatch_id", p.ID()))
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		s.watchDelivery(context.WithoutCancel(ctx), l, req.UserID, status.Email, p)
	}()
	return p, nil
}

// watchDelivery waits for p and reports a failed delivery of a minted token.
func (s *service) watchDelivery(ctx context.Context, l *zap.Logger, userID int64, recipient string, p *notification.Pending) {
	<-p.Done()
	err := p.Err()
	if err == nil {
		s.metrics.ObserveWorkflow(workflowSend, "ok")
		return
	}
	s.metrics.ObserveWorkflow(workflowSend, outcome(err))
	l.Warn("verification email not delivered", zap.Error(err))
	s.report(ctx, l, domain.ReconciliationEvent{
		Kind:      domain.EventVerificationMailFailed,
		UserID:    userID,
		Recipient: recipient,
		Reason:    err.Error(),
	})
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	l := logger.WithContext(ctx, s.logger)

	res, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return s.fail(workflowVerify, err)
	}

	if err := s.directory.MarkVerified(ctx, res.UserID); err != nil {
		l.Error("token consumed but user not marked verified", zap.Int64("user_id", res.UserID), zap.Error(err))
		s.report(ctx, l, domain.ReconciliationEvent{
			Kind:   domain.EventTokenConsumedUnmarked,
			UserID: res.UserID,
			Reason: err.Error(),
		})
		return s.fail(workflowVerify, err)
	}

	s.metrics.ObserveWorkflow(workflowVerify, "ok")
	l.Info("email verified", zap.Int64("user_id", res.UserID))
	return nil
}

func (s *service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.watchers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("verification reports drain interrupted"), ctx.Err())
	}
}

func (s *service) fail(workflow string, err error) error {
	s.metrics.ObserveWorkflow(workflow, outcome(err))
	return err
}

func (s *service) report(ctx context.Context, l *zap.Logger, ev domain.ReconciliationEvent) {
	if s.reconciler == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	if err := s.reconciler.Report(context.WithoutCancel(ctx), ev); err != nil {
		l.Warn("reconciliation report failed", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

// outcome names the error kind for the workflow metric.
func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return "directory_unavailable"
	case errors.Is(err, domain.ErrTokenGeneration):
		return "token_generation"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "token_already_used"
	case errors.Is(err, domain.ErrTokenServiceUnavailable):
		return "token_service_unavailable"
	case errors.Is(err, domain.ErrMailFailure):
		return "mail_failure"
	default:
		return "error"
	}
}
