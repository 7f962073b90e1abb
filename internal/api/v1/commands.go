package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/botrelay/internal/domain"
)

type CreateCommandInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
	Body  struct {
		Name        string          `json:"name" minLength:"1" maxLength:"32" doc:"Command name"`
		Description string          `json:"description" minLength:"1" maxLength:"100" doc:"Command description"`
		Type        int             `json:"type,omitempty" minimum:"0" maximum:"3" doc:"Platform command type; 0 means chat input"`
		Options     json.RawMessage `json:"options,omitempty" doc:"Raw option schema passed through to the platform"`
	}
}

type CreateCommandOutput struct {
	Body *domain.Command
}

type ListCommandsInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
}

type ListCommandsOutput struct {
	Body []*domain.Command
}

type GetCommandInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
	ID    uuid.UUID `path:"id" doc:"Command ID"`
}

type GetCommandOutput struct {
	Body *domain.Command
}

type UpdateCommandInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
	ID    uuid.UUID `path:"id" doc:"Command ID"`
	Body  struct {
		Name        string          `json:"name" minLength:"1" maxLength:"32" doc:"Command name"`
		Description string          `json:"description" minLength:"1" maxLength:"100" doc:"Command description"`
		Type        int             `json:"type,omitempty" minimum:"0" maximum:"3" doc:"Platform command type; 0 means chat input"`
		Options     json.RawMessage `json:"options,omitempty" doc:"Raw option schema passed through to the platform"`
	}
}

type UpdateCommandOutput struct {
	Body *domain.Command
}

type DeleteCommandInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
	ID    uuid.UUID `path:"id" doc:"Command ID"`
}

type DeleteCommandOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

type RegisterCommandsInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
}

type RegisterCommandsOutput struct {
	Body domain.CommandRegistration
}

type VerifyCommandsInput struct {
	BotID uuid.UUID `path:"botId" doc:"Owning bot ID"`
}

type VerifyCommandsOutput struct {
	Body domain.CommandVerification
}

func RegisterCommandRoutes(api huma.API, store DataStore, registrar CommandRegistrar) {
	huma.Register(api, huma.Operation{
		OperationID: "create-command",
		Method:      http.MethodPost,
		Path:        "/bots/{botId}/commands",
		Summary:     "Define a slash command for a bot",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *CreateCommandInput) (*CreateCommandOutput, error) {
		if _, err := store.Bots().GetByID(ctx, input.BotID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error500InternalServerError("failed to get bot", err)
		}

		now := time.Now()
		cmd := &domain.Command{
			ID:          uuid.New(),
			BotID:       input.BotID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Type:        input.Body.Type,
			Options:     input.Body.Options,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.Commands().Create(ctx, cmd); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("command already exists")
			}
			return nil, huma.Error500InternalServerError("failed to create command", err)
		}

		return &CreateCommandOutput{Body: cmd}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-commands",
		Method:      http.MethodGet,
		Path:        "/bots/{botId}/commands",
		Summary:     "List a bot's slash commands",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *ListCommandsInput) (*ListCommandsOutput, error) {
		cmds, err := store.Commands().ListByBot(ctx, input.BotID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list commands", err)
		}
		return &ListCommandsOutput{Body: cmds}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-commands",
		Method:      http.MethodGet,
		Path:        "/bots/{botId}/commands/verify",
		Summary:     "Compare registered platform commands against the stored definitions",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *VerifyCommandsInput) (*VerifyCommandsOutput, error) {
		result, err := registrar.VerifyAll(ctx, input.BotID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error502BadGateway("command verification failed", err)
		}
		return &VerifyCommandsOutput{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-command",
		Method:      http.MethodGet,
		Path:        "/bots/{botId}/commands/{id}",
		Summary:     "Get a slash command by ID",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *GetCommandInput) (*GetCommandOutput, error) {
		cmd, err := store.Commands().GetByID(ctx, input.BotID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("command not found")
			}
			return nil, huma.Error500InternalServerError("failed to get command", err)
		}
		return &GetCommandOutput{Body: cmd}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-command",
		Method:      http.MethodPut,
		Path:        "/bots/{botId}/commands/{id}",
		Summary:     "Update a slash command",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *UpdateCommandInput) (*UpdateCommandOutput, error) {
		cmd, err := store.Commands().GetByID(ctx, input.BotID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("command not found")
			}
			return nil, huma.Error500InternalServerError("failed to get command", err)
		}

		cmd.Name = input.Body.Name
		cmd.Description = input.Body.Description
		cmd.Type = input.Body.Type
		cmd.Options = input.Body.Options
		cmd.UpdatedAt = time.Now()

		if err := store.Commands().Update(ctx, cmd); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("command not found")
			}
			return nil, huma.Error500InternalServerError("failed to update command", err)
		}

		return &UpdateCommandOutput{Body: cmd}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-command",
		Method:      http.MethodDelete,
		Path:        "/bots/{botId}/commands/{id}",
		Summary:     "Delete a slash command",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *DeleteCommandInput) (*DeleteCommandOutput, error) {
		if err := store.Commands().Delete(ctx, input.BotID, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("command not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete command", err)
		}
		out := &DeleteCommandOutput{}
		out.Body.Deleted = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "register-commands",
		Method:      http.MethodPost,
		Path:        "/bots/{botId}/commands/register",
		Summary:     "Push a bot's slash commands to the platform",
		Tags:        []string{"Commands"},
	}, func(ctx context.Context, input *RegisterCommandsInput) (*RegisterCommandsOutput, error) {
		result, err := registrar.RegisterAll(ctx, input.BotID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("bot not found")
			}
			return nil, huma.Error502BadGateway("command registration failed", err)
		}
		return &RegisterCommandsOutput{Body: result}, nil
	})
}
