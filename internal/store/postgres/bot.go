package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/botrelay/internal/domain"
)

// BotRepo implements domain.BotRepository using PostgreSQL. Tokens are
// stored as vault ciphertext; this layer never sees plaintext.
type BotRepo struct {
	pool *pgxpool.Pool
}

func NewBotRepo(pool *pgxpool.Pool) *BotRepo {
	return &BotRepo{pool: pool}
}

const botColumns = `id, name, description, avatar_url, interaction_origin,
	webhook_url, guild_id, application_id, token, created_at, updated_at`

func (r *BotRepo) Create(ctx context.Context, b *domain.Bot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bots (`+botColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.Name, b.Description, b.AvatarURL, b.InteractionOrigin,
		b.WebhookURL, b.GuildID, b.ApplicationID, b.EncryptedToken,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("botRepo.Create: %w", err)
	}

	return nil
}

func (r *BotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	var b domain.Bot

	err := r.pool.QueryRow(ctx,
		`SELECT `+botColumns+` FROM bots WHERE id = $1`, id,
	).Scan(
		&b.ID, &b.Name, &b.Description, &b.AvatarURL, &b.InteractionOrigin,
		&b.WebhookURL, &b.GuildID, &b.ApplicationID, &b.EncryptedToken,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("botRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("botRepo.GetByID: %w", err)
	}

	return &b, nil
}

func (r *BotRepo) List(ctx context.Context) ([]*domain.Bot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+botColumns+` FROM bots ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("botRepo.List: %w", err)
	}
	defer rows.Close()

	var list []*domain.Bot
	for rows.Next() {
		var b domain.Bot

		scanErr := rows.Scan(
			&b.ID, &b.Name, &b.Description, &b.AvatarURL, &b.InteractionOrigin,
			&b.WebhookURL, &b.GuildID, &b.ApplicationID, &b.EncryptedToken,
			&b.CreatedAt, &b.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("botRepo.List: scan: %w", scanErr)
		}

		list = append(list, &b)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("botRepo.List: rows: %w", rowsErr)
	}

	return list, nil
}

func (r *BotRepo) Update(ctx context.Context, b *domain.Bot) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE bots SET name = $2, description = $3, avatar_url = $4,
		        interaction_origin = $5, webhook_url = $6, guild_id = $7,
		        application_id = $8, token = $9, updated_at = $10
		 WHERE id = $1`,
		b.ID, b.Name, b.Description, b.AvatarURL, b.InteractionOrigin,
		b.WebhookURL, b.GuildID, b.ApplicationID, b.EncryptedToken, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("botRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("botRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("botRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("botRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
