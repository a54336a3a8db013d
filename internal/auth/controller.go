package auth

import (
	"net/http"

	"cinetix/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Validation failed", err.Error())
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		switch err {
		case ErrUserAlreadyExists:
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "User with this email already exists", nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to register user", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "User registered successfully", resp, nil)
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Validation failed", err.Error())
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid email or password", nil)
		case ErrUserInactive:
			response.RespondError(ctx, http.StatusForbidden, response.CodeForbidden, "Account is inactive", nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to login", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Login successful", resp, nil)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	var req RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Validation failed", err.Error())
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		switch err {
		case ErrInvalidToken, ErrTokenExpired, ErrSessionRevoked:
			response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired refresh token", nil)
		case ErrUserNotFound:
			response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "User not found", nil)
		case ErrUserInactive:
			response.RespondError(ctx, http.StatusForbidden, response.CodeForbidden, "Account is inactive", nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to refresh token", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Token refreshed successfully", tokenPair, nil)
}

func (c *Controller) Logout(ctx *gin.Context) {
	var req LogoutRequest
	ctx.ShouldBindJSON(&req) // Optional body

	if err := c.service.Logout(ctx.Request.Context(), req.RefreshToken); err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to logout", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Logged out successfully", nil, nil)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated", nil)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Validation failed", err.Error())
		return
	}

	err := c.service.ChangePassword(ctx.Request.Context(), userID.(string), &req)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Current password is incorrect", nil)
		case ErrUserNotFound:
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "User not found", nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to change password", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Password changed successfully", nil, nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "User not authenticated", nil)
		return
	}

	email, _ := ctx.Get("user_email")
	role, _ := ctx.Get("user_role")

	userData := map[string]interface{}{
		"id":    userID,
		"email": email,
		"role":  role,
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User data retrieved successfully", userData, nil)
}
