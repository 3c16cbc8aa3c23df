// Package api serves the BlendGuard HTTP endpoints used by the frontend and the Telegram webhook
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"blendguard/internal/alert"
	"blendguard/internal/bot"
	"blendguard/internal/core"
	"blendguard/internal/deeplink"
	"blendguard/internal/position"
	"blendguard/internal/protection"

	"golang.org/x/time/rate"
)

const serviceName = "blendguard-backend"

// Protector executes safety actions. *protection.Vault satisfies it.
type Protector interface {
	Execute(ctx context.Context, userID, positionID string, actions []protection.Action) (protection.Result, error)
	Receipts(ctx context.Context, positionID string) ([]*protection.Receipt, error)
	Info() protection.VaultInfo
	Describe() string
}

// UpdateHandler processes Telegram webhook updates. *bot.Bot satisfies it.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u bot.Update) error
}

// Options wires the server's collaborators. Bot may be nil to disable the webhook.
type Options struct {
	Addr          string
	Positions     position.Source
	Signer        *deeplink.Signer
	Alerts        bot.Dispatcher
	Vault         Protector
	Bot           UpdateHandler
	Health        core.IHealthMonitor
	WebhookSecret string

	// RequestsPerSecond <= 0 disables rate limiting on write endpoints
	RequestsPerSecond float64
	Burst             int
}

// Server is the HTTP API
type Server struct {
	opts    Options
	logger  core.ILogger
	limiter *rate.Limiter
	srv     *http.Server
}

func NewServer(opts Options, logger core.ILogger) *Server {
	if logger == nil {
		logger = core.NopLogger{}
	}
	s := &Server{
		opts:   opts,
		logger: logger.WithField("component", "api_server"),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	return s
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /health", s.handleHealth)
	s.handle(mux, "GET /api/health", s.handleHealth)

	s.handle(mux, "GET /api/positions", s.handlePosition)
	s.handle(mux, "GET /api/positions/{id}", s.handlePosition)
	s.handle(mux, "GET /api/positions/{id}/details", s.handleDetails)
	s.handle(mux, "GET /api/positions/{id}/receipts", s.handleReceipts)
	s.handle(mux, "GET /api/users/{userID}/positions", s.handleUserPositions)

	s.handle(mux, "GET /api/protect/link", s.handleProtectLink)
	s.handle(mux, "GET /api/protect/verify", s.handleProtectVerify)
	s.handle(mux, "POST /api/protect", s.limited(s.handleProtect))
	s.handle(mux, "POST /api/notify-telegram", s.limited(s.handleNotifyTelegram))

	s.handle(mux, "GET /api/vault", s.handleVault)

	if s.opts.Bot != nil {
		s.handle(mux, "POST /api/telegram/webhook", s.handleTelegramWebhook)
	}

	return withCORS(mux)
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "addr", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

var _ bot.Dispatcher = (*alert.AlertManager)(nil)
