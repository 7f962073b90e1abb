package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/botrelay/internal/domain"
	"github.com/gosuda/botrelay/internal/relay"
	"github.com/gosuda/botrelay/internal/secrets"
)

type CreateBotInput struct {
	Body struct {
		Name              string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
		Description       string `json:"description,omitempty" maxLength:"1000" doc:"Optional description"`
		AvatarURL         string `json:"avatar_url,omitempty" maxLength:"2048" doc:"Optional avatar URL"`
		InteractionOrigin string `json:"interaction_origin" doc:"Forwarding policy (guild-channel, direct-message, hybrid)"`
		WebhookURL        string `json:"webhook_url" minLength:"1" maxLength:"2048" doc:"Destination webhook URL"`
		GuildID           string `json:"guild_id,omitempty" maxLength:"32" doc:"Optional home guild ID"`
		ApplicationID     string `json:"application_id,omitempty" maxLength:"32" doc:"Optional application ID"`
		Token             string `json:"token" minLength:"1" maxLength:"256" doc:"Gateway token (stored encrypted)"` //nolint:gosec // G117: credential DTO
	}
}

type CreateBotOutput struct {
	Body *domain.Bot
}

type GetBotInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type GetBotOutput struct {
	Body *domain.Bot
}

type ListBotsOutput struct {
	Body []*domain.Bot
}

type UpdateBotInput struct {
	ID   uuid.UUID `path:"id" doc:"Bot ID"`
	Body struct {
		Name              string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
		Description       string `json:"description,omitempty" maxLength:"1000" doc:"Optional description"`
		AvatarURL         string `json:"avatar_url,omitempty" maxLength:"2048" doc:"Optional avatar URL"`
		InteractionOrigin string `json:"interaction_origin" doc:"Forwarding policy (guild-channel, direct-message, hybrid)"`
		WebhookURL        string `json:"webhook_url" minLength:"1" maxLength:"2048" doc:"Destination webhook URL"`
		GuildID           string `json:"guild_id,omitempty" maxLength:"32" doc:"Optional home guild ID"`
		ApplicationID     string `json:"application_id,omitempty" maxLength:"32" doc:"Optional application ID"`
		Token             string `json:"token,omitempty" maxLength:"256" doc:"New gateway token; empty keeps the current one"` //nolint:gosec // G117: credential DTO
	}
}

type UpdateBotOutput struct {
	Body *domain.Bot
}

type DeleteBotInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type DeleteBotOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

type StartBotInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type StartBotOutput struct {
	Body relay.BotStatus
}

type StopBotInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type StopBotOutput struct {
	Body struct {
		Stopped bool `json:"stopped"`
	}
}

type RestartBotInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type RestartBotOutput struct {
	Body relay.BotStatus
}

type BotStatusInput struct {
	ID uuid.UUID `path:"id" doc:"Bot ID"`
}

type BotStatusOutput struct {
	Body relay.BotStatus
}

type AllStatusesOutput struct {
	Body []relay.BotStatus
}

type InitializeOutput struct {
	Body struct {
		Initialized bool              `json:"initialized"`
		Statuses    []relay.BotStatus `json:"statuses"`
	}
}

type TestDMInput struct {
	ID   uuid.UUID `path:"id" doc:"Bot ID"`
	Body struct {
		UserID string `json:"user_id" minLength:"1" maxLength:"32" doc:"Recipient user ID"`
	}
}

type TestDMOutput struct {
	Body struct {
		Sent    bool   `json:"sent"`
		Message string `json:"message"`
	}
}

// testDMContent is the message body; the recipient is asked to reply
// so the inbound DM path can be checked in the same run.
const testDMContent = "DM test: if you received this message, the bot can " +
	"send you direct messages. Now try sending a message back to the bot."

func RegisterBotRoutes(api huma.API, store DataStore, manager ConnectionManager, vault *secrets.Vault, tester DMTester) {
	huma.Register(api, huma.Operation{
		OperationID: "create-bot",
		Method:      http.MethodPost,
		Path:        "/bots",
		Summary:     "Register a new bot credential",
		Tags:        []string{"Bots"},
	}, func(ctx context.Context, input *CreateBotInput) (*CreateBotOutput, error) {
		origin := domain.InteractionOrigin(input.Body.InteractionOrigin)
		if !origin.Valid() {
			return nil, huma.Error400BadRequest("unknown interaction origin: " + input.Body.InteractionOrigin)
		}

		encrypted, err := vault.Encrypt(input.Body.Token)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to encrypt token", err)
		}

		now := time.Now()
		bot := &domain.Bot{
			ID:                uuid.New(),
			Name:              input.Body.Name,
			Description:       input.Body.Description,
			AvatarURL:         input.Body.AvatarURL,
			InteractionOrigin: origin,
			WebhookURL:        input.Body.WebhookURL,
			GuildID:           input.Body.GuildID,
			ApplicationID:     input.Body.ApplicationID,
			EncryptedToken:    encrypted,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := store.Bots().Create(ctx, bot); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("bot already exists")
			}
			return nil, huma.Error500InternalServerError("failed to create bot", err)
		}

		return &CreateBotOutput{Body: bot}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bots",
		Method:      http.MethodGet,
		Path:        "/bots",
		Summary:     "List all bots",
		Tags:        []string{"Bots"},
	}, func(ctx context.Context, _ *struct{}) (*ListBotsOutput, error) {
		bots, err := store.Bots().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list bots", err)
		}
		return &ListBotsOutput{Body: bots}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bot-statuses",
		Method:      http.MethodGet,
		Path:        "/bots/statuses",
		Summary:     "List connection statuses of all active bots",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, _ *struct{}) (*AllStatusesOutput, error) {
		return &AllStatusesOutput{Body: manager.AllStatuses()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-bot",
		Method:      http.MethodGet,
		Path:        "/bots/{id}",
		Summary:     "Get a bot by ID",
		Tags:        []string{"Bots"},
	}, func(ctx context.Context, input *GetBotInput) (*GetBotOutput, error) {
		bot, err := store.Bots().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to get bot", err)
		}
		return &GetBotOutput{Body: bot}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-bot",
		Method:      http.MethodPut,
		Path:        "/bots/{id}",
		Summary:     "Update a bot",
		Tags:        []string{"Bots"},
	}, func(ctx context.Context, input *UpdateBotInput) (*UpdateBotOutput, error) {
		origin := domain.InteractionOrigin(input.Body.InteractionOrigin)
		if !origin.Valid() {
			return nil, huma.Error400BadRequest("unknown interaction origin: " + input.Body.InteractionOrigin)
		}

		bot, err := store.Bots().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to get bot", err)
		}

		bot.Name = input.Body.Name
		bot.Description = input.Body.Description
		bot.AvatarURL = input.Body.AvatarURL
		bot.InteractionOrigin = origin
		bot.WebhookURL = input.Body.WebhookURL
		bot.GuildID = input.Body.GuildID
		bot.ApplicationID = input.Body.ApplicationID
		if input.Body.Token != "" {
			encrypted, err := vault.Encrypt(input.Body.Token)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to encrypt token", err)
			}
			bot.EncryptedToken = encrypted
		}
		bot.UpdatedAt = time.Now()

		if err := store.Bots().Update(ctx, bot); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to update bot", err)
		}

		return &UpdateBotOutput{Body: bot}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-bot",
		Method:      http.MethodDelete,
		Path:        "/bots/{id}",
		Summary:     "Delete a bot, stopping its connection first",
		Tags:        []string{"Bots"},
	}, func(ctx context.Context, input *DeleteBotInput) (*DeleteBotOutput, error) {
		manager.Stop(input.ID)

		if err := store.Bots().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete bot", err)
		}

		out := &DeleteBotOutput{}
		out.Body.Deleted = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-bot",
		Method:      http.MethodPost,
		Path:        "/bots/{id}/start",
		Summary:     "Open the bot's gateway connection",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *StartBotInput) (*StartBotOutput, error) {
		if err := manager.Start(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			if errors.Is(err, relay.ErrAuthentication) || errors.Is(err, relay.ErrPermission) {
				return nil, huma.Error401Unauthorized(err.Error())
			}
			return nil, huma.Error502BadGateway("failed to start bot", err)
		}
		return &StartBotOutput{Body: manager.Status(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-bot",
		Method:      http.MethodPost,
		Path:        "/bots/{id}/stop",
		Summary:     "Close the bot's gateway connection",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *StopBotInput) (*StopBotOutput, error) {
		out := &StopBotOutput{}
		out.Body.Stopped = manager.Stop(input.ID)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restart-bot",
		Method:      http.MethodPost,
		Path:        "/bots/{id}/restart",
		Summary:     "Restart the bot's gateway connection",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *RestartBotInput) (*RestartBotOutput, error) {
		if err := manager.Restart(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			if errors.Is(err, relay.ErrAuthentication) || errors.Is(err, relay.ErrPermission) {
				return nil, huma.Error401Unauthorized(err.Error())
			}
			return nil, huma.Error502BadGateway("failed to restart bot", err)
		}
		return &RestartBotOutput{Body: manager.Status(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-bot-status",
		Method:      http.MethodGet,
		Path:        "/bots/{id}/status",
		Summary:     "Get the connection status of one bot",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, input *BotStatusInput) (*BotStatusOutput, error) {
		return &BotStatusOutput{Body: manager.Status(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "test-dm",
		Method:      http.MethodPost,
		Path:        "/bots/{id}/test-dm",
		Summary:     "Send a test direct message with the bot's credentials",
		Tags:        []string{"Diagnostics"},
	}, func(ctx context.Context, input *TestDMInput) (*TestDMOutput, error) {
		bot, err := store.Bots().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to get bot", err)
		}

		token, err := vault.Decrypt(bot.EncryptedToken)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to decrypt token", err)
		}

		if err := tester.SendDirectMessage(ctx, token, input.Body.UserID, testDMContent); err != nil {
			return nil, huma.Error502BadGateway("failed to send test DM", err)
		}

		out := &TestDMOutput{}
		out.Body.Sent = true
		out.Body.Message = "test DM sent"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "initialize-bots",
		Method:      http.MethodPost,
		Path:        "/bots/initialize",
		Summary:     "Start connections for every stored bot",
		Tags:        []string{"Lifecycle"},
	}, func(ctx context.Context, _ *struct{}) (*InitializeOutput, error) {
		if err := manager.InitializeAll(ctx); err != nil {
			return nil, huma.Error500InternalServerError("failed to initialize connections", err)
		}
		out := &InitializeOutput{}
		out.Body.Initialized = manager.IsInitialized()
		out.Body.Statuses = manager.AllStatuses()
		return out, nil
	})
}
