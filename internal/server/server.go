package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/journal"
	"github.com/AlexTLDR/kitchentable/internal/mail"
	"github.com/AlexTLDR/kitchentable/internal/server/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	config       *config.Config
	db           *database.DB
	journal      *journal.Service
	mailer       *mail.Mailer
	log          logrus.FieldLogger
	sessionStore *sessions.CookieStore
	router       chi.Router
}

// GetJournal implements handlers.Server interface
func (s *Server) GetJournal() *journal.Service {
	return s.journal
}

// GetLogger implements handlers.Server interface
func (s *Server) GetLogger() logrus.FieldLogger {
	return s.log
}

func New(cfg *config.Config, db *database.DB, svc *journal.Service, mailer *mail.Mailer, log logrus.FieldLogger) *Server {
	s := &Server{
		config:       cfg,
		db:           db,
		journal:      svc,
		mailer:       mailer,
		log:          log,
		sessionStore: newSessionStore(cfg, log),
		router:       chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)

	// Auth routes
	r.Post("/api/auth/signup", s.handleSignup)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/auth/me", s.handleMe)
	r.Post("/api/auth/forgot-password", s.handleForgotPassword)
	r.Post("/api/auth/reset-password", s.handleResetPassword)
	r.Get("/reset-password/{token}", s.handleResetPasswordPage)
	r.Get("/auth/google", s.handleGoogleLogin)
	r.Get("/auth/google/callback", s.handleGoogleCallback)

	// Table routes (protected)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/api/table/create", handlers.HandleCreateTable(s))
		r.Post("/api/table/join", handlers.HandleJoinTable(s))
		r.Get("/api/table/info", handlers.HandleTableInfo(s))
		r.Get("/api/table/list", handlers.HandleListTables(s))
		r.Post("/api/table/switch", handlers.HandleSwitchTable(s))
		r.Put("/api/table/settings", handlers.HandleUpdateSettings(s))
		r.Put("/api/table/display-name", handlers.HandleUpdateDisplayName(s))
		r.Post("/api/table/leave", handlers.HandleLeaveTable(s))

		r.Get("/api/prompt/today", handlers.HandleTodayPrompt(s))
		r.Get("/api/prompt/yesterday", handlers.HandleYesterdayPrompt(s))

		r.Post("/api/response/submit", handlers.HandleSubmitResponse(s))
		r.Put("/api/response/edit", handlers.HandleEditResponse(s))
		r.Get("/api/response/poll", handlers.HandlePollResponses(s))
	})
}

// Handler returns the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.mailer.Wait()

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requireAuth is a middleware that checks if user is authenticated
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessionUserID(r)
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if err := s.db.TouchLastActive(r.Context(), userID, time.Now()); err != nil {
			s.log.WithField("user_id", userID).WithError(err).Warn("failed to record activity")
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("request")
	})
}
