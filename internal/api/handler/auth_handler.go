package handler

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"laborgrow/internal/authsvc"
	"laborgrow/internal/config"
	"laborgrow/internal/storage"
	"laborgrow/internal/storage/models"
)

// AuthHandler handles registration and login. Credentials never touch
// this service: both operations delegate to the hosted auth provider and
// only profile rows are stored locally.
type AuthHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	auth    authsvc.Provider
	logger  *log.Logger
}

func NewAuthHandler(cfg *config.Config, storage *storage.Storage, auth authsvc.Provider) *AuthHandler {
	return &AuthHandler{
		cfg:     cfg,
		storage: storage,
		auth:    auth,
		logger:  log.New(os.Stdout, "[AuthHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

type employerRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

type employeeRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleEmployerRegister registers an employer account.
// POST /api/v1/auth/employers/register
func (h *AuthHandler) HandleEmployerRegister(ctx context.Context, c *app.RequestContext) {
	var req employerRegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.CompanyName) == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "email, password and company_name are required"})
		return
	}

	// Duplicate pre-check before touching the auth service.
	var count int64
	if err := h.storage.MySQL.DB().WithContext(ctx).Model(&models.Employer{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		h.logger.Printf("employer duplicate pre-check failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "registration failed"})
		return
	}
	if count > 0 {
		c.JSON(consts.StatusConflict, utils.H{"error": "an employer with this email already exists"})
		return
	}

	userID, err := h.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrEmailTaken) {
			c.JSON(consts.StatusConflict, utils.H{"error": "an account with this email already exists"})
			return
		}
		h.logger.Printf("auth service register failed: %v", err)
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "registration service unavailable"})
		return
	}

	employer := models.Employer{
		ID:          userID,
		CompanyName: strings.TrimSpace(req.CompanyName),
		Email:       req.Email,
	}
	if err := h.storage.MySQL.DB().WithContext(ctx).Create(&employer).Error; err != nil {
		h.logger.Printf("failed to store employer profile for %s: %v", userID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to store employer profile"})
		return
	}

	c.JSON(consts.StatusCreated, utils.H{"status": "success", "user_id": userID})
}

// HandleEmployeeRegister registers a job-seeker account.
// POST /api/v1/auth/employees/register
func (h *AuthHandler) HandleEmployeeRegister(ctx context.Context, c *app.RequestContext) {
	var req employeeRegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "email, password and full_name are required"})
		return
	}

	var count int64
	if err := h.storage.MySQL.DB().WithContext(ctx).Model(&models.Employee{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		h.logger.Printf("employee duplicate pre-check failed: %v", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "registration failed"})
		return
	}
	if count > 0 {
		c.JSON(consts.StatusConflict, utils.H{"error": "an employee with this email already exists"})
		return
	}

	userID, err := h.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrEmailTaken) {
			c.JSON(consts.StatusConflict, utils.H{"error": "an account with this email already exists"})
			return
		}
		h.logger.Printf("auth service register failed: %v", err)
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "registration service unavailable"})
		return
	}

	employee := models.Employee{
		ID:       userID,
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Phone:    strings.TrimSpace(req.Phone),
	}
	if err := h.storage.MySQL.DB().WithContext(ctx).Create(&employee).Error; err != nil {
		h.logger.Printf("failed to store employee profile for %s: %v", userID, err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to store employee profile"})
		return
	}

	c.JSON(consts.StatusCreated, utils.H{"status": "success", "user_id": userID})
}

// HandleLogin exchanges credentials for a session token.
// POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(ctx context.Context, c *app.RequestContext) {
	var req loginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "email and password are required"})
		return
	}

	token, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "invalid email or password"})
			return
		}
		h.logger.Printf("auth service sign-in failed: %v", err)
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "login service unavailable"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"status": "success", "token": token})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
