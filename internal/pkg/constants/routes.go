package constants

// Static route constants
const (
	APIRoute           = "/api"
	APIV1Route         = "/v1"
	StripeWebhookRoute = "/webhooks/stripe"
	MetricsRoute       = "/metrics"
)
