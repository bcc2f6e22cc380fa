package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
	"github.com/tumortrace/classification-service/internal/service"
)

// AccountManager is the account service as seen by the user and auth routes.
type AccountManager interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Current(ctx context.Context, userID string) (*models.User, error)
	Update(ctx context.Context, userID string, in service.UpdateInput) (*models.User, error)
	Delete(ctx context.Context, userID string) error
	GoogleSignIn(ctx context.Context, identity *auth.GoogleIdentity) (*service.Session, error)
}

type UserHandler struct {
	accounts      AccountManager
	tokens        *auth.TokenManager
	secureCookies bool
}

func NewUserHandler(accounts AccountManager, tokens *auth.TokenManager, secureCookies bool) *UserHandler {
	return &UserHandler{accounts: accounts, tokens: tokens, secureCookies: secureCookies}
}

type registerRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Age      flexInt `json:"age"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age.n,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusCreated, "User registered successfully", session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, "User logged in successfully", session)
}

func (h *UserHandler) writeSession(c *gin.Context, status int, message string, session *service.Session) {
	h.tokens.SetSessionCookie(c, session.Token, h.secureCookies)
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"token":   session.Token,
		"user":    session.User,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User logged out successfully"})
}

func (h *UserHandler) Current(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	user, err := h.accounts.Current(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User fetched successfully", "user": user})
}

type updateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.Update(c.Request.Context(), userID, service.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User updated successfully", "user": user})
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := sessionUser(c)
	if !ok {
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	auth.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}
