package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the message rate limit routes.
func RegisterRoutes(api huma.API, messageLimitHandler *MessageLimitHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "check-message-rate-limit",
		Method:      http.MethodPost,
		Path:        "/api/MessageRateLimit",
		Summary:     "Check message rate limit",
		Description: "Counts a message against its phone and account quotas and reports whether it may be sent.",
		Tags:        []string{"Rate limit"},
	}, messageLimitHandler.CheckMessageLimit)
}
