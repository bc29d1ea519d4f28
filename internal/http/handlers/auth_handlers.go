package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/http/middleware"
	"github.com/you/feedauth/internal/logging"
)

// AuthHandlers serves the login, OTP and registration endpoints
type AuthHandlers struct {
	loginSvc      domain.LoginService
	otpSvc        domain.OTPService
	credentialSvc domain.CredentialService
	accounts      domain.AccountRepository
	redirect      string
	now           func() time.Time
}

// NewAuthHandlers creates new auth handlers. redirect is where clients are
// sent after a successful login.
func NewAuthHandlers(loginSvc domain.LoginService, otpSvc domain.OTPService, credentialSvc domain.CredentialService, accounts domain.AccountRepository, redirect string) *AuthHandlers {
	return &AuthHandlers{
		loginSvc:      loginSvc,
		otpSvc:        otpSvc,
		credentialSvc: credentialSvc,
		accounts:      accounts,
		redirect:      redirect,
		now:           time.Now,
	}
}

// CheckLoginRequest represents a login attempt
type CheckLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest asks for a fresh code
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest submits a code, optionally resolving a login challenge
type VerifyOTPRequest struct {
	Email          string `json:"email" binding:"required,email"`
	OTP            string `json:"otp" binding:"required"`
	Language       string `json:"lng,omitempty"`
	ChallengeToken string `json:"challenge_token,omitempty"`
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,e164"`
}

// CheckLogin handles POST /check-login
func (h *AuthHandlers) CheckLogin(c *gin.Context) {
	var req CheckLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.loginSvc.Login(c.Request.Context(), req.Email, req.Password, middleware.Fingerprint(c))
	if err != nil {
		status, msg := h.errorStatus(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if result.Outcome == domain.OutcomeChallengeIssued {
		expiresIn := int(math.Ceil(result.ChallengeExpiresAt.Sub(h.now()).Seconds()))
		c.JSON(http.StatusAccepted, gin.H{
			"success":         false,
			"message":         "OTP sent, please check your email",
			"challenge_token": result.ChallengeToken,
			"expires_in":      max(expiresIn, 0),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Login successful",
		"redirect": h.redirect,
	})
}

// SendOTP handles POST /send-otp. Accounts with a phone number may receive
// the code by SMS when that channel is configured.
func (h *AuthHandlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	to := domain.Recipient{Email: domain.NormalizeEmail(req.Email)}
	account, err := h.accounts.FindByEmail(ctx, to.Email)
	switch {
	case err == nil:
		to.Phone = account.Phone
	case !errors.Is(err, domain.ErrAccountNotFound):
		logging.FromContext(ctx).Error("failed to load account for OTP", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending OTP"})
		return
	}

	if _, err := h.otpSvc.Issue(ctx, to); err != nil {
		if errors.Is(err, domain.ErrOTPResendLimit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": err.Error()})
			return
		}
		logging.FromContext(ctx).Error("failed to issue OTP", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error sending OTP"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

// VerifyOTP handles POST /verify-otp. With a challenge token the caller's
// pending login completes and its device becomes trusted.
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.ChallengeToken != "" {
		if _, err := h.loginSvc.CompleteChallenge(ctx, req.ChallengeToken, req.Email, req.OTP); err != nil {
			status, msg := h.errorStatus(c, err)
			c.JSON(status, gin.H{"success": false, "message": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"language": req.Language,
			"message":  "Login successful",
			"redirect": h.redirect,
		})
		return
	}

	if err := h.otpSvc.Verify(ctx, req.Email, req.OTP); err != nil {
		status, msg := h.errorStatus(c, err)
		c.JSON(status, gin.H{"success": false, "message": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "language": req.Language})
}

// Register handles POST /register
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.credentialSvc.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		status, msg := h.errorStatus(c, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created",
		"email":   account.Email,
	})
}

// errorStatus maps domain errors onto HTTP responses. Anything unrecognised
// is logged and reported as a 500.
func (h *AuthHandlers) errorStatus(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrInvalidSecret):
		return http.StatusBadRequest, "Invalid password"
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrOutsideWindow):
		return http.StatusForbidden, "Access restricted during this time for mobile devices"
	case errors.Is(err, domain.ErrOTPResendLimit):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrDispatchFailed):
		logging.FromContext(c.Request.Context()).Error("OTP dispatch failed", "error", err)
		return http.StatusInternalServerError, "Error sending OTP"
	case errors.Is(err, domain.ErrOTPNotFound):
		return http.StatusNotFound, "OTP not found"
	case errors.Is(err, domain.ErrOTPExpired):
		return http.StatusBadRequest, "OTP expired"
	case errors.Is(err, domain.ErrOTPMismatch):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, domain.ErrOTPMaxAttempts):
		return http.StatusTooManyRequests, "Too many invalid attempts, request a new code"
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrChallengeInvalid):
		return http.StatusBadRequest, "Login challenge invalid or expired, please log in again"
	default:
		logging.FromContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		return http.StatusInternalServerError, "Internal server error"
	}
}
