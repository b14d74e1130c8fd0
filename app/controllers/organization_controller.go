package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/gastrolink/gastrolink/app/models"
	"github.com/gastrolink/gastrolink/app/repository"
	"github.com/gastrolink/gastrolink/internal/pkg/usercontext"
)

type organizationRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	RegistryNumber string `json:"registry_number"`
	City           string `json:"city"`
	Website        string `json:"website"`
}

// organizationUpdateRequest is a partial update: nil fields stay untouched.
// The registry number is fixed at creation and not updatable at all.
type organizationUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	City        *string `json:"city"`
	Website     *string `json:"website"`
}

func applyOrganizationUpdate(org *models.Organization, req organizationUpdateRequest) {
	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Description != nil {
		org.Description = *req.Description
	}
	if req.City != nil {
		org.City = *req.City
	}
	if req.Website != nil {
		org.Website = *req.Website
	}
}

// HandleListOrganizations returns a paginated organization directory.
func HandleListOrganizations(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetOrganizationRepository()
	orgs, err := repo.List(offset, limit)
	if err != nil {
		log.Printf("organizations: list failed: %v", err)
		return internalError(c, "Failed to load organizations")
	}
	total, err := repo.Count()
	if err != nil {
		log.Printf("organizations: count failed: %v", err)
		return internalError(c, "Failed to load organizations")
	}

	return c.JSON(fiber.Map{
		"organizations": orgs,
		"total":         total,
	})
}

// HandleGetOrganization returns a single organization with its services.
func HandleGetOrganization(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return badRequest(c, "Missing organization identifier")
	}

	repo := repository.GetGlobalFactory().GetOrganizationRepository()
	org, err := repo.GetByUUIDWithServices(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Organization not found")
		}
		log.Printf("organizations: lookup %s failed: %v", uuid, err)
		return internalError(c, "Failed to load organization")
	}

	return c.JSON(org)
}

// HandleCreateOrganization registers a new organization and attaches the
// calling provider to it. A provider belongs to at most one organization.
func HandleCreateOrganization(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req organizationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("organizations: caller lookup failed: %v", err)
		return internalError(c, "Failed to create organization")
	}
	if user.OrganizationID != nil {
		return badRequest(c, "You already belong to an organization")
	}

	org := &models.Organization{
		Name:           req.Name,
		Description:    req.Description,
		RegistryNumber: req.RegistryNumber,
		City:           req.City,
		Website:        req.Website,
	}
	if err := org.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()
	if err := orgRepo.Create(org); err != nil {
		log.Printf("organizations: create failed: %v", err)
		return internalError(c, "Failed to create organization")
	}

	user.OrganizationID = &org.ID
	if err := userRepo.Update(user); err != nil {
		log.Printf("organizations: failed to attach user %d to organization %d: %v", user.ID, org.ID, err)
		return internalError(c, "Failed to create organization")
	}

	return c.Status(fiber.StatusCreated).JSON(org)
}

// HandleUpdateOrganization updates descriptive fields of the caller's
// organization. The registry number is fixed at creation.
func HandleUpdateOrganization(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	uuid := c.Params("uuid")

	orgRepo := repository.GetGlobalFactory().GetOrganizationRepository()
	org, err := orgRepo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Organization not found")
		}
		log.Printf("organizations: lookup %s failed: %v", uuid, err)
		return internalError(c, "Failed to update organization")
	}

	if !userCtx.IsAdmin {
		user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
		if err != nil {
			log.Printf("organizations: caller lookup failed: %v", err)
			return internalError(c, "Failed to update organization")
		}
		if user.OrganizationID == nil || *user.OrganizationID != org.ID {
			return forbidden(c, "You can only update your own organization")
		}
	}

	var req organizationUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	applyOrganizationUpdate(org, req)

	if err := org.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if err := orgRepo.Update(org); err != nil {
		log.Printf("organizations: update %s failed: %v", uuid, err)
		return internalError(c, "Failed to update organization")
	}

	return c.JSON(org)
}
