package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/internal/services"
	xhttp "github.com/schoolpay/payment-gateway/pkg/http"
)

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (string, *model.User, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func RegisterAuthRoutes(e *router.Group, h *AuthHandler) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token,omitempty"`
	User    *model.User `json:"user"`
}

func (h *AuthHandler) Register(ctx *xhttp.RequestCtx) {
	var req registerRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	user, err := h.svc.Register(ctx, model.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			writeError(ctx, xhttp.StatusConflict, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, authResponse{Success: true, User: user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var req loginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	token, user, err := h.svc.Login(ctx, model.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(ctx, xhttp.StatusUnauthorized, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, authResponse{Success: true, Token: token, User: user})
}
