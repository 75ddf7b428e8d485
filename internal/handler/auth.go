package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mchenard/cinema-booking/internal/config"
	"github.com/mchenard/cinema-booking/internal/repository"
	"github.com/mchenard/cinema-booking/internal/utils"
)

// UserAccounts is the account surface the auth endpoints need.
type UserAccounts interface {
	Create(ctx context.Context, username, password, role string, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (repository.User, error)
}

// AuthHandler bundles dependencies for the identity endpoints.  Sessions are
// stateless JWTs; logout is a client-side token drop acknowledged by the
// server.
type AuthHandler struct {
	Cfg   config.Config
	Users UserAccounts
}

func NewAuthHandler(cfg config.Config, users UserAccounts) *AuthHandler {
	if users == nil {
		panic("nil user store passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"` // "user" (default) | "admin"
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /register.  The role defaults to "user"; anything
// other than "user" or "admin" is rejected.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_fields", "message": "username and password are required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = "user"
	}
	if role != "user" && role != "admin" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_role", "message": "role must be user or admin"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Username, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username_taken", "message": "this username is already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not create account"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "account created, you can now log in",
		"id":       id,
		"username": req.Username,
		"role":     role,
	})
}

// Login handles POST /login.  Bad username and bad password return the same
// message so accounts cannot be enumerated.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_fields", "message": "username and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "bad_credentials", "message": "incorrect username or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "login failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "bad_credentials", "message": "incorrect username or password"})
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Role, h.Cfg.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":   tok.Token,
		"expires": tok.Exp,
		"user": echo.Map{
			"id":       u.ID,
			"username": u.Username,
			"role":     u.Role,
		},
	})
}

// Logout handles POST /logout.  Tokens are not tracked server-side, so this
// only acknowledges; the client discards its token.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// CheckSession handles GET /check_session.  Reaching it means the JWT
// middleware accepted the token; echo the identity back.
func (h *AuthHandler) CheckSession(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "please log in first"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"user_id":       userID,
		"username":      c.Get("username"),
		"role":          c.Get("role"),
	})
}
