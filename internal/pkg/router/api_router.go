package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/OrderFox/app/controllers"
	"github.com/ManuelReschke/OrderFox/internal/pkg/cache"
	"github.com/ManuelReschke/OrderFox/internal/pkg/constants"
	"github.com/ManuelReschke/OrderFox/internal/pkg/env"
	"github.com/ManuelReschke/OrderFox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIV1Route)
	v1.Post("/users", controllers.HandleRegisterUser)
	v1.Get("/products", controllers.HandleListProducts)
	v1.Get("/products/:id", controllers.HandleGetProduct)
	v1.Get("/stats", controllers.HandleGetStats)

	protected := v1.Group("", middleware.APIKeyAuthMiddleware())
	protected.Get("/users/me", controllers.HandleGetAccount)
	protected.Get("/cart", controllers.HandleGetCart)
	protected.Put("/cart", controllers.HandleUpdateCart)
	protected.Post("/checkout/sessions", controllers.HandleCreateCheckoutSession)
	protected.Get("/orders", controllers.HandleListOrders)
	protected.Get("/orders/:publicID", controllers.HandleGetOrder)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Connection settings are derived from the cache client; database
// 1 keeps limiter keys out of the cache keyspace.
func newLimiterStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
