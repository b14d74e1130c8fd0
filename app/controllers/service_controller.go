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

type serviceRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	PriceMin       int64    `json:"price_min"`
	PriceMax       int64    `json:"price_max"`
	DeliveryMode   string   `json:"delivery_mode"`
	BillingCadence string   `json:"billing_cadence"`
	Tags           []string `json:"tags"`
	AIReplaceable  bool     `json:"ai_replaceable"`
}

// serviceUpdateRequest is a partial update: nil fields stay untouched.
type serviceUpdateRequest struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	PriceMin       *int64    `json:"price_min"`
	PriceMax       *int64    `json:"price_max"`
	DeliveryMode   *string   `json:"delivery_mode"`
	BillingCadence *string   `json:"billing_cadence"`
	Tags           *[]string `json:"tags"`
	AIReplaceable  *bool     `json:"ai_replaceable"`
}

func applyServiceUpdate(service *models.Service, req serviceUpdateRequest) {
	if req.Title != nil {
		service.Title = *req.Title
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.PriceMin != nil {
		service.PriceMin = *req.PriceMin
	}
	if req.PriceMax != nil {
		service.PriceMax = *req.PriceMax
	}
	if req.DeliveryMode != nil {
		service.DeliveryMode = *req.DeliveryMode
	}
	if req.BillingCadence != nil {
		service.BillingCadence = *req.BillingCadence
	}
	if req.Tags != nil {
		service.SetTagList(*req.Tags)
	}
	if req.AIReplaceable != nil {
		service.AIReplaceable = *req.AIReplaceable
	}
}

// HandleListServices returns the public service catalogue. Supports
// tag, delivery_mode and max_price query filters.
func HandleListServices(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	filter := repository.ServiceFilter{
		Tag:          c.Query("tag"),
		DeliveryMode: c.Query("delivery_mode"),
		MaxPrice:     int64(c.QueryInt("max_price", 0)),
	}

	repo := repository.GetGlobalFactory().GetServiceRepository()
	services, err := repo.List(filter, offset, limit)
	if err != nil {
		log.Printf("services: list failed: %v", err)
		return internalError(c, "Failed to load services")
	}

	return c.JSON(fiber.Map{
		"services": services,
		"count":    len(services),
	})
}

// HandleListMyServices returns every listing of the caller's organization,
// newest first, without the public catalogue filters.
func HandleListMyServices(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("services: caller lookup failed: %v", err)
		return internalError(c, "Failed to load services")
	}
	if user.OrganizationID == nil {
		return c.JSON(fiber.Map{"services": []models.Service{}, "count": 0})
	}

	services, err := repository.GetGlobalFactory().GetServiceRepository().GetByOrganizationID(*user.OrganizationID)
	if err != nil {
		log.Printf("services: listing for organization %d failed: %v", *user.OrganizationID, err)
		return internalError(c, "Failed to load services")
	}

	return c.JSON(fiber.Map{
		"services": services,
		"count":    len(services),
	})
}

// HandleGetService returns a single service listing.
func HandleGetService(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return badRequest(c, "Missing service identifier")
	}

	repo := repository.GetGlobalFactory().GetServiceRepository()
	service, err := repo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Service not found")
		}
		log.Printf("services: lookup %s failed: %v", uuid, err)
		return internalError(c, "Failed to load service")
	}

	return c.JSON(service)
}

// HandleCreateService creates a listing under the caller's organization.
func HandleCreateService(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("services: caller lookup failed: %v", err)
		return internalError(c, "Failed to create service")
	}
	if user.OrganizationID == nil {
		return badRequest(c, "Create an organization before listing services")
	}

	var req serviceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	service := &models.Service{
		OrganizationID: *user.OrganizationID,
		Title:          req.Title,
		Description:    req.Description,
		PriceMin:       req.PriceMin,
		PriceMax:       req.PriceMax,
		DeliveryMode:   req.DeliveryMode,
		BillingCadence: req.BillingCadence,
		AIReplaceable:  req.AIReplaceable,
	}
	if service.DeliveryMode == "" {
		service.DeliveryMode = models.DeliveryModeIRL
	}
	if service.BillingCadence == "" {
		service.BillingCadence = models.BillingCadenceOneOff
	}
	service.SetTagList(req.Tags)

	if err := service.Validate(); err != nil {
		if errors.Is(err, models.ErrPriceRangeInverted) {
			return badRequest(c, "price_max must not be lower than price_min")
		}
		return badRequest(c, err.Error())
	}

	repo := repository.GetGlobalFactory().GetServiceRepository()
	if err := repo.Create(service); err != nil {
		log.Printf("services: create failed: %v", err)
		return internalError(c, "Failed to create service")
	}

	return c.Status(fiber.StatusCreated).JSON(service)
}

// HandleUpdateService updates a listing owned by the caller's organization.
func HandleUpdateService(c *fiber.Ctx) error {
	service, errResp := loadOwnedService(c)
	if service == nil {
		return errResp
	}

	var req serviceUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	applyServiceUpdate(service, req)

	if err := service.Validate(); err != nil {
		if errors.Is(err, models.ErrPriceRangeInverted) {
			return badRequest(c, "price_max must not be lower than price_min")
		}
		return badRequest(c, err.Error())
	}

	repo := repository.GetGlobalFactory().GetServiceRepository()
	if err := repo.Update(service); err != nil {
		log.Printf("services: update %s failed: %v", service.UUID, err)
		return internalError(c, "Failed to update service")
	}

	return c.JSON(service)
}

// HandleDeleteService removes a listing owned by the caller's organization.
func HandleDeleteService(c *fiber.Ctx) error {
	service, errResp := loadOwnedService(c)
	if service == nil {
		return errResp
	}

	repo := repository.GetGlobalFactory().GetServiceRepository()
	if err := repo.Delete(service.ID); err != nil {
		log.Printf("services: delete %s failed: %v", service.UUID, err)
		return internalError(c, "Failed to delete service")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// loadOwnedService resolves the :uuid param and enforces that the caller's
// organization owns the listing (admins bypass the ownership check). On
// failure it returns a nil service and the error response to send.
func loadOwnedService(c *fiber.Ctx) (*models.Service, error) {
	userCtx := usercontext.GetUserContext(c)
	uuid := c.Params("uuid")

	repo := repository.GetGlobalFactory().GetServiceRepository()
	service, err := repo.GetByUUID(uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(c, "Service not found")
		}
		log.Printf("services: lookup %s failed: %v", uuid, err)
		return nil, internalError(c, "Failed to load service")
	}

	if userCtx.IsAdmin {
		return service, nil
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("services: caller lookup failed: %v", err)
		return nil, internalError(c, "Failed to load service")
	}
	if user.OrganizationID == nil || *user.OrganizationID != service.OrganizationID {
		return nil, forbidden(c, "You can only manage services of your own organization")
	}

	return service, nil
}
