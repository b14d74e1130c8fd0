package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/gastrolink/gastrolink/app/models"
	"github.com/gastrolink/gastrolink/app/repository"
	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
	"github.com/gastrolink/gastrolink/internal/pkg/security"
	"github.com/gastrolink/gastrolink/internal/pkg/usercontext"
)

var tokenIssuer *security.TokenIssuer

// InitAuth injects the token issuer used by the auth endpoints.
func InitAuth(issuer *security.TokenIssuer) {
	tokenIssuer = issuer
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account and returns it with a bearer token.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if !security.IsValidEmail(req.Email) {
		return badRequest(c, "Invalid email address")
	}
	if !security.IsValidPassword(req.Password) {
		return badRequest(c, "Password must be 6-100 characters with at least one lowercase letter, one uppercase letter and one digit")
	}

	role := req.Role
	if role == "" {
		role = models.ROLE_CLIENT
	}
	if role != models.ROLE_CLIENT && role != models.ROLE_PROVIDER {
		return badRequest(c, "Role must be client or provider")
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password, role)
	if err != nil {
		return badRequest(c, err.Error())
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return badRequest(c, "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: email lookup failed: %v", err)
		return internalError(c, "Registration failed")
	}

	if err := repo.Create(user); err != nil {
		// A concurrent registration can slip past the lookup above and hit
		// the unique email index instead.
		if isDuplicateKey(err) {
			return badRequest(c, "An account with this email already exists")
		}
		log.Printf("register: create failed: %v", err)
		return internalError(c, "Registration failed")
	}

	token, err := tokenIssuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		log.Printf("register: token issuance failed: %v", err)
		return internalError(c, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleLogin verifies credentials and returns a bearer token. Every
// credential failure gets the same generic message so accounts cannot be
// enumerated.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("login: lookup failed: %v", err)
			return internalError(c, "Login failed")
		}
		return unauthorized(c, "Incorrect email or password")
	}

	if !user.CheckPassword(req.Password) {
		return unauthorized(c, "Incorrect email or password")
	}

	token, err := tokenIssuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		log.Printf("login: token issuance failed: %v", err)
		return internalError(c, "Login failed")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Printf("login: failed to update last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleGetMe returns the authenticated account with its entitlements.
func HandleGetMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c, "Missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "User not found")
		}
		log.Printf("me: lookup failed: %v", err)
		return internalError(c, "Failed to load user")
	}

	return c.JSON(fiber.Map{
		"id":                  user.ID,
		"name":                user.Name,
		"email":               user.Email,
		"role":                user.Role,
		"organization_id":     user.OrganizationID,
		"plan":                user.Plan,
		"subscription_status": user.SubscriptionState,
		"subscription_start":  formatTimePtr(user.SubscriptionStart),
		"subscription_end":    formatTimePtr(user.SubscriptionEnd),
		"trial_used":          user.TrialUsed,
		"last_login_at":       formatTimePtr(user.LastLoginAt),
		"created_at":          user.CreatedAt.UTC().Format(time.RFC3339),
		"entitlements": fiber.Map{
			"basic":    user.CanAccess(entitlements.TierBasic),
			"premium":  user.CanAccess(entitlements.TierPremium),
			"business": user.CanAccess(entitlements.TierBusiness),
		},
	})
}
