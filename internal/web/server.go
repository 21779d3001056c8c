package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
	"github.com/vitos/trade_signal_levels/internal/usecase"
)

// Server is the webhook boundary: it turns HTTP payloads into raw signal
// lines, feeds them through the signal service and reports the outcome.
// The shared-secret check lives here, not in the core.
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	service *usecase.SignalService
	rules   *usecase.RuleStore
	repo    domain.SignalRepository
	secret  string
	logger  *zap.Logger
}

func NewServer(
	port int,
	service *usecase.SignalService,
	rules *usecase.RuleStore,
	repo domain.SignalRepository,
	secret string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		service: service,
		rules:   rules,
		repo:    repo,
		secret:  secret,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /", s.handleHome)
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Signal ingestion
	s.router.HandleFunc("POST /webhook", s.handleWebhook)
	s.router.HandleFunc("POST /webhook/raw", s.handleWebhookRaw)

	// Introspection
	s.router.HandleFunc("GET /api/signals", s.handleListSignals)
	s.router.HandleFunc("GET /api/assets", s.handleListAssets)
	s.router.HandleFunc("POST /api/rules/reload", s.handleReloadRules)
}

func (s *Server) Start() error {
	s.logger.Info("Starting webhook server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
