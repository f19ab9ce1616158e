package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mail-service/internal/api/dto"
	"github.com/spec-kit/mail-service/internal/auth"
	"github.com/spec-kit/mail-service/internal/service"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

// AuthHandler exposes account and session endpoints.
type AuthHandler struct {
	accounts *service.AccountService
	sessions *auth.SessionManager
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(accounts *service.AccountService, sessions *auth.SessionManager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{accounts: accounts, sessions: sessions, logger: logger}
}

// Index handles GET /.
func (h *AuthHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the IsMailSpam app!"})
}

// CheckAuth handles GET /check_auth. It never fails; a missing, expired or
// orphaned session is reported as unauthenticated.
func (h *AuthHandler) CheckAuth(c *fiber.Ctx) error {
	sess, err := h.sessions.Load(c)
	if err != nil {
		if !auth.IsNoSession(err) {
			h.logger.Warn("check_auth: session lookup failed", zap.Error(err))
		}
		return c.JSON(fiber.Map{"authenticated": false})
	}
	user, err := h.accounts.CurrentUser(c.UserContext(), sess.UserID)
	if err != nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          dto.NewUserResponse(user),
	})
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    dto.NewUserResponse(user),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	if _, err := h.sessions.Establish(c, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    dto.NewUserResponse(user),
	})
}

// Logout handles POST /logout. It succeeds with or without a session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Clear(c); err != nil {
		h.logger.Warn("logout: session cleanup failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// ChangePassword handles POST /change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	sess, err := auth.RequireSession(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.UserContext(), sess.UserID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// ListUsers handles GET /users.
func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": dto.NewUserResponses(users)})
}
