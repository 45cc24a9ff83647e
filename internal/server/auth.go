package server

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/AlexTLDR/kitchentable/internal/server/handlers"
	"github.com/AlexTLDR/kitchentable/internal/utils"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type userView struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func viewOf(u *database.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, DisplayName: u.DisplayName}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.WithField("operation", op).WithError(err).Error("auth request failed")
	handlers.WriteError(w, http.StatusInternalServerError, "An error occurred")
}

type signupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	username := strings.TrimSpace(req.Username)
	email := utils.NormalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		handlers.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if !utils.ValidUsername(username) {
		handlers.WriteError(w, http.StatusBadRequest,
			"Username must be 3-20 characters and contain only letters, numbers, and underscores")
		return
	}
	if !utils.ValidEmail(email) {
		handlers.WriteError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		handlers.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	displayName := utils.NormalizeText(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	ctx := r.Context()
	taken, err := s.db.UsernameExists(ctx, username)
	if err != nil {
		s.internalError(w, r, "signup", err)
		return
	}
	if taken {
		handlers.WriteError(w, http.StatusBadRequest, "Username already taken")
		return
	}
	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		handlers.WriteError(w, http.StatusBadRequest, "Email already registered")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.internalError(w, r, "signup", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, "signup", err)
		return
	}

	user, err := s.db.CreateUser(ctx, username, email, string(hash), displayName, time.Now())
	if database.IsUniqueViolation(err) {
		handlers.WriteError(w, http.StatusBadRequest, "Username or email already registered")
		return
	}
	if err != nil {
		s.internalError(w, r, "signup", err)
		return
	}

	if err := s.login(w, r, user.ID); err != nil {
		s.internalError(w, r, "signup", err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("user signed up")
	handlers.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully",
		"user":    viewOf(user),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	login := strings.TrimSpace(req.Username)
	if login == "" || req.Password == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Username/email and password required")
		return
	}

	user, err := s.db.GetUserByLogin(r.Context(), login)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.internalError(w, r, "login", err)
		return
	}
	// Google-only accounts have no password hash and cannot log in this way.
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := s.login(w, r, user.ID); err != nil {
		s.internalError(w, r, "login", err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    viewOf(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.logout(w, r); err != nil {
		s.internalError(w, r, "logout", err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.sessionUserID(r)
	if !ok {
		handlers.WriteJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	user, err := s.db.GetUserByID(r.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		handlers.WriteJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}
	if err != nil {
		s.internalError(w, r, "me", err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          viewOf(user),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

const forgotPasswordMessage = "If that email exists, password reset instructions have been sent"

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if email == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Email required")
		return
	}

	ctx := r.Context()
	user, err := s.db.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.log.Debug("password reset requested for unknown email")
	case err != nil:
		s.internalError(w, r, "forgot_password", err)
		return
	default:
		token, err := database.GenerateToken()
		if err != nil {
			s.internalError(w, r, "forgot_password", err)
			return
		}
		if err := s.db.SetResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
			s.internalError(w, r, "forgot_password", err)
			return
		}
		s.mailer.SendPasswordReset(user.Email, token)
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordMessage})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !handlers.DecodeJSON(w, r, &req) {
		return
	}

	if req.Token == "" || req.Password == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Token and password required")
		return
	}
	if len(req.Password) < minPasswordLength {
		handlers.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	user, err := s.db.GetUserByResetToken(ctx, req.Token, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		handlers.WriteError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if err != nil {
		s.internalError(w, r, "reset_password", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, "reset_password", err)
		return
	}
	if err := s.db.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		s.internalError(w, r, "reset_password", err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("password reset")
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
}

func (s *Server) getGoogleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.GoogleClientID,
		ClientSecret: s.config.GoogleClientSecret,
		RedirectURL:  s.config.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.config.GoogleEnabled() {
		handlers.WriteError(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	state := hex.EncodeToString(securecookie.GenerateRandomKey(16))
	session := s.session(r)
	session.Values[keyOAuthState] = state
	if err := session.Save(r, w); err != nil {
		s.internalError(w, r, "google_login", err)
		return
	}

	url := s.getGoogleOAuthConfig().AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.config.GoogleEnabled() {
		handlers.WriteError(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}

	session := s.session(r)
	want, _ := session.Values[keyOAuthState].(string)
	delete(session.Values, keyOAuthState)
	if err := session.Save(r, w); err != nil {
		s.internalError(w, r, "google_callback", err)
		return
	}
	if want == "" || r.URL.Query().Get("state") != want {
		handlers.WriteError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Code not found")
		return
	}

	ctx := r.Context()
	oauthConfig := s.getGoogleOAuthConfig()
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		s.internalError(w, r, "google_callback", fmt.Errorf("failed to exchange token: %w", err))
		return
	}

	info, err := fetchGoogleUserInfo(ctx, oauthConfig.Client(ctx, token))
	if err != nil {
		s.internalError(w, r, "google_callback", err)
		return
	}
	if info.Email == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Google account has no email")
		return
	}

	user, err := s.findOrCreateGoogleUser(ctx, info)
	if errors.Is(err, errUnverifiedGoogleEmail) {
		handlers.WriteError(w, http.StatusBadRequest, "Google account email is not verified")
		return
	}
	if err != nil {
		s.internalError(w, r, "google_callback", err)
		return
	}

	if err := s.login(w, r, user.ID); err != nil {
		s.internalError(w, r, "google_callback", err)
		return
	}
	http.Redirect(w, r, s.config.AfterLoginURL(), http.StatusSeeOther)
}

func fetchGoogleUserInfo(ctx context.Context, client *http.Client) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}

	var info googleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	info.Email = utils.NormalizeEmail(info.Email)
	return &info, nil
}

var errUnverifiedGoogleEmail = errors.New("google email not verified")

// findOrCreateGoogleUser returns the account registered under the Google
// email, creating a password-less one on first sign-in. Unverified emails
// never match an account.
func (s *Server) findOrCreateGoogleUser(ctx context.Context, info *googleUserInfo) (*database.User, error) {
	if !info.VerifiedEmail {
		return nil, errUnverifiedGoogleEmail
	}

	user, err := s.db.GetUserByEmail(ctx, info.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	username, err := s.availableUsername(ctx, info.Email)
	if err != nil {
		return nil, err
	}

	displayName := utils.NormalizeText(info.Name)
	if displayName == "" {
		displayName = username
	}

	user, err = s.db.CreateUser(ctx, username, info.Email, "", displayName, time.Now())
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("created user from Google sign-in")
	return user, nil
}

// availableUsername derives a free username from the local part of email.
func (s *Server) availableUsername(ctx context.Context, email string) (string, error) {
	base := usernameFromEmail(email)
	for i := 0; i < 100; i++ {
		candidate := base
		if i > 0 {
			suffix := fmt.Sprint(i)
			if len(candidate)+len(suffix) > 20 {
				candidate = candidate[:20-len(suffix)]
			}
			candidate += suffix
		}

		taken, err := s.db.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		}
	}

	name := b.String()
	if len(name) > 16 {
		name = name[:16]
	}
	for len(name) < 3 {
		name += "_"
	}
	return name
}
