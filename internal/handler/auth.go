package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pochaneco/ai-Knowledge-api/internal/middleware"
	"github.com/pochaneco/ai-Knowledge-api/internal/ratelimit"
	"github.com/pochaneco/ai-Knowledge-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	// Separate limiters so reset and resend traffic cannot eat into the
	// login budget.
	loginLimiter *ratelimit.Limiter
	mailLimiter  *ratelimit.Limiter
}

func NewAuthHandler(authService *service.AuthService, loginLimiter, mailLimiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{authService: authService, loginLimiter: loginLimiter, mailLimiter: mailLimiter}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email,max=100"`
		Password string `json:"password" binding:"required,min=8,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, gin.H{"user": user.Brief()})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	if h.loginLimiter != nil && !h.loginLimiter.Allow(c.Request.Context(), c.ClientIP()) {
		TooManyRequests(c)
		return
	}

	user, tokenStr, expireAt, err := h.authService.Login(req.Identifier, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"user":       user.Brief(),
		"token":      tokenStr,
		"expires_at": expireAt,
	})
}

// GET /auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		BadRequest(c, 40001, "missing token")
		return
	}

	user, alreadyVerified, err := h.authService.VerifyEmail(tokenStr)
	if err != nil {
		Fail(c, err)
		return
	}
	message := "email address verified"
	if alreadyVerified {
		message = "email address was already verified"
	}
	Success(c, gin.H{"user": user.Brief(), "message": message})
}

// POST /auth/password-reset/request
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	if h.mailLimiter != nil && !h.mailLimiter.Allow(c.Request.Context(), c.ClientIP()) {
		TooManyRequests(c)
		return
	}

	// Always the same answer, whether or not the address is registered.
	h.authService.RequestPasswordReset(req.Email)
	Success(c, gin.H{"message": "if the address is registered, a reset link has been sent"})
}

// POST /auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	if h.mailLimiter != nil && !h.mailLimiter.Allow(c.Request.Context(), c.ClientIP()) {
		TooManyRequests(c)
		return
	}

	h.authService.ResendVerification(req.Email)
	Success(c, gin.H{"message": "if the address needs verification, a new link has been sent"})
}

// POST /auth/password-reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=8,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.Password); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"message": "password has been reset"})
}

// POST /auth/google
//
// The OAuth code exchange and ID-token validation happen upstream; this
// endpoint only swaps a validated Google identity for a local session.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req struct {
		GoogleID string `json:"google_id" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "invalid request body: "+err.Error())
		return
	}

	user, tokenStr, expireAt, err := h.authService.LoginWithGoogle(req.GoogleID, req.Email, req.Name)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"user":       user.Brief(),
		"token":      tokenStr,
		"expires_at": expireAt,
	})
}

// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, 40108, "invalid token")
		return
	}
	Success(c, gin.H{"user": user.Brief()})
}
