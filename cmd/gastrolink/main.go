package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gastrolink/gastrolink/app/controllers"
	"github.com/gastrolink/gastrolink/app/repository"
	"github.com/gastrolink/gastrolink/internal/pkg/agent"
	"github.com/gastrolink/gastrolink/internal/pkg/billing"
	"github.com/gastrolink/gastrolink/internal/pkg/cache"
	"github.com/gastrolink/gastrolink/internal/pkg/database"
	"github.com/gastrolink/gastrolink/internal/pkg/env"
	"github.com/gastrolink/gastrolink/internal/pkg/router"
	"github.com/gastrolink/gastrolink/internal/pkg/security"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	issuer, err := security.NewTokenIssuer(env.GetEnv("JWT_SECRET", ""), security.DefaultTokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	controllers.InitAuth(issuer)

	gateway := billing.NewGatewayFromEnv()
	controllers.InitBilling(
		gateway,
		billing.NewServiceFromDB(database.GetDB(), gateway),
	)

	setupAgentTools()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/gastrolink to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName:   "GastroLink",
		BodyLimit: 1048576, // 1 MiB, JSON API only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, issuer)

	return app
}

// setupAgentTools wires the AI tools when an API key is configured. Without a
// key the endpoints stay registered but report the tools as unconfigured.
func setupAgentTools() {
	apiKey := env.GetEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		log.Print("agent: GEMINI_API_KEY not set, AI tools disabled")
		return
	}

	client, err := agent.NewGeminiClient(
		context.Background(),
		apiKey,
		env.GetEnv("GEMINI_CHAT_MODEL", ""),
		env.GetEnv("GEMINI_IMAGE_MODEL", ""),
	)
	if err != nil {
		log.Printf("agent: client setup failed, AI tools disabled: %v", err)
		return
	}

	controllers.InitAgent(
		agent.NewWeatherTool(client, agent.NewRedisCache()),
		agent.NewLogoTool(client),
	)
}
