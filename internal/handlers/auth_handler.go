package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

const oauthStateCookie = "oauth_state"

// GoogleAuthenticator runs the Google authorization-code flow.
type GoogleAuthenticator interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleIdentity, error)
}

type AuthHandler struct {
	google        GoogleAuthenticator
	accounts      AccountManager
	frontendURL   string
	secureCookies bool
}

func NewAuthHandler(google GoogleAuthenticator, accounts AccountManager, frontendURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		google:        google,
		accounts:      accounts,
		frontendURL:   frontendURL,
		secureCookies: secureCookies,
	}
}

// GoogleStart redirects to Google with a state value pinned in a cookie.
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	if !h.google.Enabled() {
		writeError(c, models.ErrNotFound)
		return
	}
	state, err := auth.RandomState()
	if err != nil {
		writeError(c, err)
		return
	}

	c.SetCookie(oauthStateCookie, state, 300, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback signs the user in and hands the token to the frontend.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	cookieState, err := c.Cookie(oauthStateCookie)
	if code == "" || state == "" || err != nil || cookieState != state {
		h.redirectError(c, "invalid_state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies, true)

	identity, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		telemetry.Logger.Warn("Google exchange failed", zap.Error(err))
		h.redirectError(c, "auth_failed")
		return
	}

	session, err := h.accounts.GoogleSignIn(c.Request.Context(), identity)
	if err != nil {
		telemetry.Logger.Error("Google sign-in failed", zap.String("sub", identity.Sub), zap.Error(err))
		h.redirectError(c, "user_creation_failed")
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/?token="+url.QueryEscape(session.Token))
}

func (h *AuthHandler) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape(reason))
}
