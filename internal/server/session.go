package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/AlexTLDR/kitchentable/internal/config"
	"github.com/AlexTLDR/kitchentable/internal/journal"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const (
	sessionName   = "auth-session"
	sessionMaxAge = 30 * 24 * 60 * 60

	keyUserID     = "user_id"
	keyTableID    = "table_id"
	keyOAuthState = "oauth_state"
)

type contextKey struct{}

func newSessionStore(cfg *config.Config, log logrus.FieldLogger) *sessions.CookieStore {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		log.Warn("SESSION_SECRET not set, using a random key; sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// session returns the caller's session. A cookie that no longer decodes
// yields a fresh session.
func (s *Server) session(r *http.Request) *sessions.Session {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		s.log.WithError(err).Debug("discarding undecodable session")
	}
	return session
}

func (s *Server) sessionUserID(r *http.Request) (int64, bool) {
	id, ok := s.session(r).Values[keyUserID].(int64)
	return id, ok && id > 0
}

// CurrentUserID implements handlers.Server interface
func (s *Server) CurrentUserID(r *http.Request) int64 {
	id, _ := r.Context().Value(contextKey{}).(int64)
	return id
}

// CurrentTableID implements handlers.Server interface
func (s *Server) CurrentTableID(w http.ResponseWriter, r *http.Request) (int64, error) {
	session := s.session(r)
	pointer, _ := session.Values[keyTableID].(int64)

	resolved, err := s.journal.ResolveCurrentTable(r.Context(), s.CurrentUserID(r), pointer)
	if err != nil {
		if errors.Is(err, journal.ErrNoTable) && pointer != 0 {
			delete(session.Values, keyTableID)
			if err := session.Save(r, w); err != nil {
				return 0, err
			}
		}
		return 0, err
	}

	if resolved != pointer {
		session.Values[keyTableID] = resolved
		if err := session.Save(r, w); err != nil {
			return 0, err
		}
	}
	return resolved, nil
}

// SetCurrentTable implements handlers.Server interface. Zero clears the pointer.
func (s *Server) SetCurrentTable(w http.ResponseWriter, r *http.Request, tableID int64) error {
	session := s.session(r)
	if tableID == 0 {
		delete(session.Values, keyTableID)
	} else {
		session.Values[keyTableID] = tableID
	}
	return session.Save(r, w)
}

// login starts a session for userID, dropping any previous table pointer.
func (s *Server) login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session := s.session(r)
	session.Values = map[any]any{keyUserID: userID}
	session.Options.MaxAge = sessionMaxAge
	return session.Save(r, w)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
