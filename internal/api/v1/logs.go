package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/botrelay/internal/domain"
)

type ListLogsInput struct {
	BotID uuid.UUID `query:"botId" doc:"Filter to one bot; omit for all bots"`
	Limit int       `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Max entries, newest first"`
}

type ListLogsOutput struct {
	Body []*domain.EventLogEntry
}

type ClearLogsInput struct {
	BotID uuid.UUID `query:"botId" doc:"Clear only one bot's entries; omit for all"`
}

type ClearLogsOutput struct {
	Body struct {
		Cleared bool `json:"cleared"`
	}
}

func RegisterLogRoutes(api huma.API, logs domain.EventLogRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "list-event-logs",
		Method:      http.MethodGet,
		Path:        "/logs",
		Summary:     "List recent event log entries",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *ListLogsInput) (*ListLogsOutput, error) {
		var botID *uuid.UUID
		if input.BotID != uuid.Nil {
			botID = &input.BotID
		}

		entries, err := logs.List(ctx, botID, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list event logs", err)
		}
		return &ListLogsOutput{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-event-logs",
		Method:      http.MethodDelete,
		Path:        "/logs",
		Summary:     "Clear event log entries",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *ClearLogsInput) (*ClearLogsOutput, error) {
		var botID *uuid.UUID
		if input.BotID != uuid.Nil {
			botID = &input.BotID
		}

		if err := logs.Clear(ctx, botID); err != nil {
			return nil, huma.Error500InternalServerError("failed to clear event logs", err)
		}
		out := &ClearLogsOutput{}
		out.Body.Cleared = true
		return out, nil
	})
}
