package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/config"
	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/repository"
	"github.com/iliyamo/snapscape/internal/utils"
)

type UserStore interface {
	Create(ctx context.Context, name, email, password string, role model.Role, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePreferences(ctx context.Context, id uint64, onReview, onCompetition bool) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler issues and rotates tokens and serves the caller's profile.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type preferencesReq struct {
	NotifyOnReview      *bool `json:"notifyOnReview"`
	NotifyOnCompetition *bool `json:"notifyOnCompetition"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// issue creates an access/refresh pair for u and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a regular user and logs them in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if len(req.Password) < utils.MinPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrWeakPassword.Error()})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, utils.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials. Unknown emails, wrong passwords and
// deactivated accounts all yield the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return writeError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// refreshUser validates a raw refresh token and loads its active owner.
func (h *AuthHandler) refreshUser(ctx context.Context, raw string) (model.User, string, bool, error) {
	hash := utils.HashRefreshRaw(raw)
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrInvalidRefresh) {
		return model.User{}, "", false, nil
	}
	if err != nil {
		return model.User{}, "", false, err
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, "", false, nil
	}
	if err != nil {
		return model.User{}, "", false, err
	}
	return u, hash, u.IsActive, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, hash, ok, err := h.refreshUser(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return writeError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess issues only a new access token; the refresh token stays
// valid.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, _, ok, err := h.refreshUser(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes one refresh token when given, or every refresh token of the
// bearer's user otherwise.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestContext(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	p, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	if err != nil || p.UserID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, p.UserID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdatePreferences toggles the caller's email notifications. Omitted
// fields keep their value.
func (h *AuthHandler) UpdatePreferences(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req preferencesReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return writeError(c, err)
	}
	if req.NotifyOnReview != nil {
		u.NotifyOnReview = *req.NotifyOnReview
	}
	if req.NotifyOnCompetition != nil {
		u.NotifyOnCompetition = *req.NotifyOnCompetition
	}
	if err := h.Users.UpdatePreferences(ctx, uid, u.NotifyOnReview, u.NotifyOnCompetition); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
