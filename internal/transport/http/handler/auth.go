package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/transport/http/middleware"
	"github.com/ErlanBelekov/account-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

// accountUsecaser is the subset of AccountUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type accountUsecaser interface {
	Signup(ctx context.Context, input usecase.SignupInput) (*domain.User, error)
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.LoginResult, error)
	Approve(ctx context.Context, userID string) (*domain.User, error)
	ListPending(ctx context.Context, limit int) ([]*domain.User, error)
}

type AuthHandler struct {
	accounts accountUsecaser
	logger   *slog.Logger
}

func NewAuthHandler(accounts accountUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With("component", "auth_handler"),
	}
}

type signupRequest struct {
	Name     string `json:"name"     binding:"max=100"`
	Email    string `json:"email"    binding:"required,email,max=254"`
	Username string `json:"username" binding:"omitempty,max=64"`
	Password string `json:"password" binding:"required,max=72"`
}

type userResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Username  *string       `json:"username,omitempty"`
	Status    domain.Status `json:"status"`
	Role      domain.Role   `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Username:  u.Username,
		Status:    u.Status,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// POST /signup
func (h *AuthHandler) Signup(ctx *gin.Context) {
	var req signupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Signup(ctx.Request.Context(), usecase.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWeakPassword):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errWeakPassword})
		case errors.Is(err, domain.ErrValidation):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		case errors.Is(err, domain.ErrUserExists):
			ctx.JSON(http.StatusConflict, gin.H{"error": errUserExists})
		default:
			h.logger.ErrorContext(ctx.Request.Context(), "signup", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toUserResponse(user))
}

// loginRequest accepts the account by email, username, or a generic
// identifier holding either.
type loginRequest struct {
	Email      string `json:"email"      binding:"omitempty,max=254"`
	Username   string `json:"username"   binding:"omitempty,max=64"`
	Identifier string `json:"identifier" binding:"omitempty,max=254"`
	Password   string `json:"password"   binding:"required,max=72"`
}

func (r loginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	default:
		return r.Username
	}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// POST /login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.accounts.Login(ctx.Request.Context(), usecase.LoginInput{
		Identifier: req.identifier(),
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		case errors.Is(err, domain.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		case errors.Is(err, domain.ErrAccountNotApproved):
			ctx.JSON(http.StatusForbidden, gin.H{"error": errAccountNotApproved})
		case errors.Is(err, domain.ErrInvalidCredentials):
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
		default:
			h.logger.ErrorContext(ctx.Request.Context(), "login", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, loginResponse{Token: res.Token, User: toUserResponse(res.User)})
}

// PATCH /approve/:id (admin)
func (h *AuthHandler) Approve(ctx *gin.Context) {
	userID := ctx.Param("id")

	user, err := h.accounts.Approve(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
			return
		}
		h.logger.ErrorContext(ctx.Request.Context(), "approve", "user_id", userID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": user.ID, "status": user.Status})
}

// GET /me
func (h *AuthHandler) Me(ctx *gin.Context) {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"id": claims.UserID, "email": claims.Email, "role": claims.Role})
}

// GET /pending?limit=N (admin)
func (h *AuthHandler) Pending(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	users, err := h.accounts.ListPending(ctx.Request.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "list pending", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = toUserResponse(u)
	}
	ctx.JSON(http.StatusOK, gin.H{"users": items})
}
