package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/gastrolink/gastrolink/app/controllers"
	"github.com/gastrolink/gastrolink/internal/pkg/cache"
	"github.com/gastrolink/gastrolink/internal/pkg/env"
	"github.com/gastrolink/gastrolink/internal/pkg/middleware"
	"github.com/gastrolink/gastrolink/internal/pkg/security"
)

type ApiRouter struct {
	issuer *security.TokenIssuer
}

func NewApiRouter(issuer *security.TokenIssuer) *ApiRouter {
	return &ApiRouter{issuer: issuer}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "GastroLink API",
		})
	})

	v1 := api.Group("/v1", middleware.BearerAuthMiddleware(h.issuer))

	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Get("/me", middleware.RequireAuth, controllers.HandleGetMe)

	orgs := v1.Group("/organizations")
	orgs.Get("/", controllers.HandleListOrganizations)
	orgs.Get("/:uuid", controllers.HandleGetOrganization)
	orgs.Post("/", middleware.RequireProvider, controllers.HandleCreateOrganization)
	orgs.Put("/:uuid", middleware.RequireProvider, controllers.HandleUpdateOrganization)

	services := v1.Group("/services")
	services.Get("/", controllers.HandleListServices)
	services.Get("/mine", middleware.RequireProvider, controllers.HandleListMyServices)
	services.Get("/:uuid", controllers.HandleGetService)
	services.Post("/", middleware.RequireProvider, controllers.HandleCreateService)
	services.Put("/:uuid", middleware.RequireProvider, controllers.HandleUpdateService)
	services.Delete("/:uuid", middleware.RequireProvider, controllers.HandleDeleteService)

	billing := v1.Group("/billing")
	billing.Get("/plans", controllers.HandleGetPlans)
	billing.Post("/checkout", middleware.RequireAuth, controllers.HandleCreateCheckout)
	billing.Post("/confirm", middleware.RequireAuth, controllers.HandleConfirmCheckout)
	billing.Post("/webhook", controllers.HandleBillingWebhook)

	agent := v1.Group("/agent")
	agent.Post("/weather", middleware.RequireAuth, controllers.HandleAgentWeather)
	agent.Post("/logo", middleware.RequireAuth, controllers.HandleAgentLogo)

	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/users", controllers.HandleAdminListUsers)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Uses database 1; the cache keeps database 0.
func newLimiterStorage() *redis.Storage {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
