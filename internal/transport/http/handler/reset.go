package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type resetUsecaser interface {
	Forgot(ctx context.Context, email string) error
	ConfirmForgot(ctx context.Context, rawToken string, allow bool) (*usecase.ConfirmResult, error)
	ConfirmForgotOneTap(ctx context.Context, rawToken string, allow bool) (*usecase.OneTapResult, error)
	IssueReset(ctx context.Context, email string) (string, error)
	Reset(ctx context.Context, rawToken, newPassword string) error
}

type ResetHandler struct {
	reset   resetUsecaser
	appBase string
	logger  *slog.Logger
}

// NewResetHandler takes the base URL of the browser app; the one-tap link
// redirects there.
func NewResetHandler(reset resetUsecaser, appBaseURL string, logger *slog.Logger) *ResetHandler {
	return &ResetHandler{
		reset:   reset,
		appBase: strings.TrimRight(appBaseURL, "/"),
		logger:  logger.With("component", "reset_handler"),
	}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// POST /forgot
// Returns 200 whether or not the account exists.
func (h *ResetHandler) Forgot(ctx *gin.Context) {
	var req emailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reset.Forgot(ctx.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		case errors.Is(err, domain.ErrEmailDelivery):
			h.logger.ErrorContext(ctx.Request.Context(), "forgot: send confirmation", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errEmailDelivery})
		default:
			h.logger.ErrorContext(ctx.Request.Context(), "forgot", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "If the account exists, a confirmation email has been sent"})
}

type confirmRequest struct {
	Token string `json:"token" binding:"required"`
	Allow *bool  `json:"allow" binding:"required"`
}

// POST /forgot-confirm
func (h *ResetHandler) ForgotConfirm(ctx *gin.Context) {
	var req confirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.reset.ConfirmForgot(ctx.Request.Context(), req.Token, *req.Allow)
	if err != nil {
		h.confirmError(ctx, err)
		return
	}

	if !res.Allowed {
		ctx.JSON(http.StatusOK, gin.H{"message": "cancelled"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"permittedUntil": res.PermittedUntil})
}

// GET /forgot-confirm-oneTap?token=...&allow=true|false
// Followed from the confirmation email. Redirects to the reset page with a
// pwd token when allowed, and to the landing page otherwise.
// The access log skips this route; the line written here leaves out the token.
func (h *ResetHandler) ForgotConfirmOneTap(ctx *gin.Context) {
	rawToken := ctx.Query("token")
	allow, err := strconv.ParseBool(ctx.Query("allow"))
	defer func() {
		h.logger.InfoContext(ctx.Request.Context(), "one-tap confirm",
			"allow", allow,
			"status", ctx.Writer.Status(),
		)
	}()
	if rawToken == "" || err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	res, err := h.reset.ConfirmForgotOneTap(ctx.Request.Context(), rawToken, allow)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrConfirmationRequired):
			ctx.Redirect(http.StatusFound, h.landingURL("expired"))
		default:
			h.confirmError(ctx, err)
		}
		return
	}

	if !res.Allowed {
		ctx.Redirect(http.StatusFound, h.landingURL("cancelled"))
		return
	}
	ctx.Redirect(http.StatusFound, h.appBase+"/reset.html?"+url.Values{"token": {res.ResetToken}}.Encode())
}

func (h *ResetHandler) landingURL(reason string) string {
	return h.appBase + "/index.html?" + url.Values{"reset": {reason}}.Encode()
}

func (h *ResetHandler) confirmError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenInvalid):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errTokenInvalid})
	case errors.Is(err, domain.ErrUserNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
	default:
		h.logger.ErrorContext(ctx.Request.Context(), "confirm forgot", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

// POST /issue-reset
func (h *ResetHandler) IssueReset(ctx *gin.Context) {
	var req emailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pwd, err := h.reset.IssueReset(ctx.Request.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		case errors.Is(err, domain.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		case errors.Is(err, domain.ErrConfirmationRequired):
			ctx.JSON(http.StatusForbidden, gin.H{"error": errConfirmationRequired})
		default:
			h.logger.ErrorContext(ctx.Request.Context(), "issue reset", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": pwd})
}

type resetRequest struct {
	Token    string `json:"token"    binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

// POST /reset
func (h *ResetHandler) Reset(ctx *gin.Context) {
	var req resetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.reset.Reset(ctx.Request.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalid):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errTokenInvalid})
		case errors.Is(err, domain.ErrWeakPassword):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errWeakPassword})
		case errors.Is(err, domain.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		default:
			h.logger.ErrorContext(ctx.Request.Context(), "reset", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
}
