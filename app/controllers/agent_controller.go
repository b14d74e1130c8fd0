package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/gastrolink/gastrolink/app/repository"
	"github.com/gastrolink/gastrolink/internal/pkg/agent"
	"github.com/gastrolink/gastrolink/internal/pkg/usercontext"
)

var (
	weatherTool *agent.WeatherTool
	logoTool    *agent.LogoTool
)

// InitAgent injects the AI tool implementations.
func InitAgent(weather *agent.WeatherTool, logo *agent.LogoTool) {
	weatherTool = weather
	logoTool = logo
}

type weatherToolRequest struct {
	City string `json:"city"`
}

type logoToolRequest struct {
	Brief string `json:"brief"`
	Style string `json:"style"`
}

// HandleAgentWeather answers a weather lookup for event planning.
func HandleAgentWeather(c *fiber.Ctx) error {
	if ok, resp := requireToolAccess(c, agent.ToolWeather); !ok {
		return resp
	}
	if weatherTool == nil {
		return internalError(c, "Weather tool is not configured")
	}

	var req weatherToolRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.City == "" {
		return badRequest(c, "city is required")
	}

	report, err := weatherTool.Lookup(c.Context(), req.City)
	if err != nil {
		log.Printf("agent: weather lookup for %q failed: %v", req.City, err)
		return internalError(c, "Weather lookup failed")
	}

	return c.JSON(report)
}

// HandleAgentLogo generates a logo from a short brand brief.
func HandleAgentLogo(c *fiber.Ctx) error {
	if ok, resp := requireToolAccess(c, agent.ToolLogo); !ok {
		return resp
	}
	if logoTool == nil {
		return internalError(c, "Logo tool is not configured")
	}

	var req logoToolRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Brief == "" {
		return badRequest(c, "brief is required")
	}

	logo, err := logoTool.Generate(c.Context(), req.Brief, req.Style)
	if err != nil {
		log.Printf("agent: logo generation failed: %v", err)
		return internalError(c, "Logo generation failed")
	}

	return c.JSON(logo)
}

// requireToolAccess checks the caller's live entitlements against the tier a
// tool needs. When access is denied it writes the error response and returns
// ok=false.
func requireToolAccess(c *fiber.Ctx, tool string) (bool, error) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return false, unauthorized(c, "Missing or invalid authentication")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("agent: caller lookup failed: %v", err)
		return false, internalError(c, "Failed to check tool access")
	}

	if !user.CanAccess(agent.RequiredTier(tool)) {
		return false, forbidden(c, "Your plan does not include this tool")
	}
	return true, nil
}
