package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
	"github.com/ignatzorin/tender-portal/internal/service"
	"github.com/ignatzorin/tender-portal/internal/validation"
)

type AuthHandler struct {
	auth *service.AdminAuthenticator
}

func NewAuthHandler(auth *service.AdminAuthenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrLoginDisabled):
		response.Forbidden(c, "вход по паролю отключён, используйте выданный токен")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "неверный email или пароль")
		return
	case err != nil:
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
