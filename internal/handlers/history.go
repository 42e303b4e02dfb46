package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/message-ratelimiter/internal/events"
	"go.uber.org/zap"
)

// DecisionHistory lists stored decisions for an account, newest first.
type DecisionHistory interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]events.DecisionEvent, error)
}

// DecisionHistoryRequest selects the decisions to list.
type DecisionHistoryRequest struct {
	AccountID string `doc:"Account to list decisions for"  example:"123" minLength:"1"  path:"accountId"`
	Limit     int    `default:"20" doc:"Maximum decisions to return" maximum:"500" minimum:"1" query:"limit"`
}

// DecisionHistoryResponse lists recent decisions for an account.
type DecisionHistoryResponse struct {
	Body struct {
		AccountID string                 `doc:"Account the decisions belong to" json:"accountId"`
		Decisions []events.DecisionEvent `doc:"Decisions, newest first"         json:"decisions"`
	}
}

// HistoryHandler serves persisted decisions.
type HistoryHandler struct {
	history DecisionHistory
	logger  *zap.Logger
}

// NewHistoryHandler creates a new decision history handler.
func NewHistoryHandler(history DecisionHistory, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

func (h *HistoryHandler) ListDecisions(
	ctx context.Context,
	req *DecisionHistoryRequest,
) (*DecisionHistoryResponse, error) {
	decisions, err := h.history.ListByAccount(ctx, req.AccountID, req.Limit)
	if err != nil {
		h.logger.Error("failed to list decisions",
			zap.String("accountId", req.AccountID),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to list decisions")
	}

	if decisions == nil {
		decisions = []events.DecisionEvent{}
	}

	resp := &DecisionHistoryResponse{}
	resp.Body.AccountID = req.AccountID
	resp.Body.Decisions = decisions

	return resp, nil
}

// RegisterHistoryRoutes registers the decision history routes.
func RegisterHistoryRoutes(api huma.API, historyHandler *HistoryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-message-decisions",
		Method:      http.MethodGet,
		Path:        "/api/MessageRateLimit/{accountId}/decisions",
		Summary:     "List recent decisions",
		Description: "Lists the most recent rate limit decisions stored for an account.",
		Tags:        []string{"Rate limit"},
	}, historyHandler.ListDecisions)
}
