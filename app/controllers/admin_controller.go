package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/gastrolink/gastrolink/app/repository"
)

// HandleAdminListUsers returns a paginated account listing with subscription
// state, for admins only.
func HandleAdminListUsers(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetUserRepository()
	users, err := repo.List(offset, limit)
	if err != nil {
		log.Printf("admin: user list failed: %v", err)
		return internalError(c, "Failed to load users")
	}
	total, err := repo.Count()
	if err != nil {
		log.Printf("admin: user count failed: %v", err)
		return internalError(c, "Failed to load users")
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, fiber.Map{
			"id":                  u.ID,
			"name":                u.Name,
			"email":               u.Email,
			"role":                u.Role,
			"organization_id":     u.OrganizationID,
			"plan":                u.Plan,
			"subscription_status": u.SubscriptionState,
			"subscription_end":    formatTimePtr(u.SubscriptionEnd),
			"trial_used":          u.TrialUsed,
			"last_login_at":       formatTimePtr(u.LastLoginAt),
		})
	}

	return c.JSON(fiber.Map{
		"users": out,
		"total": total,
	})
}
