package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/OrderFox/app/controllers"
	"github.com/ManuelReschke/OrderFox/internal/pkg/constants"
)

type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	// Authenticated by payload signature, not by API key.
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
