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

// CommandRepo implements domain.CommandRepository using PostgreSQL.
type CommandRepo struct {
	pool *pgxpool.Pool
}

func NewCommandRepo(pool *pgxpool.Pool) *CommandRepo {
	return &CommandRepo{pool: pool}
}

const commandColumns = `id, bot_id, name, description, type, options,
	platform_id, created_at, updated_at`

func (r *CommandRepo) Create(ctx context.Context, c *domain.Command) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO commands (`+commandColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.BotID, c.Name, c.Description, c.Type, c.Options,
		c.PlatformID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("commandRepo.Create: %w", err)
	}

	return nil
}

func (r *CommandRepo) GetByID(ctx context.Context, botID, id uuid.UUID) (*domain.Command, error) {
	var c domain.Command

	err := r.pool.QueryRow(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE bot_id = $1 AND id = $2`,
		botID, id,
	).Scan(
		&c.ID, &c.BotID, &c.Name, &c.Description, &c.Type, &c.Options,
		&c.PlatformID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commandRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commandRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CommandRepo) ListByBot(ctx context.Context, botID uuid.UUID) ([]*domain.Command, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE bot_id = $1 ORDER BY name`,
		botID,
	)
	if err != nil {
		return nil, fmt.Errorf("commandRepo.ListByBot: %w", err)
	}
	defer rows.Close()

	var list []*domain.Command
	for rows.Next() {
		var c domain.Command

		scanErr := rows.Scan(
			&c.ID, &c.BotID, &c.Name, &c.Description, &c.Type, &c.Options,
			&c.PlatformID, &c.CreatedAt, &c.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("commandRepo.ListByBot: scan: %w", scanErr)
		}

		list = append(list, &c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("commandRepo.ListByBot: rows: %w", rowsErr)
	}

	return list, nil
}

func (r *CommandRepo) Update(ctx context.Context, c *domain.Command) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE commands SET name = $3, description = $4, type = $5,
		        options = $6, updated_at = $7
		 WHERE bot_id = $1 AND id = $2`,
		c.BotID, c.ID, c.Name, c.Description, c.Type, c.Options, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("commandRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commandRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CommandRepo) SetPlatformID(ctx context.Context, id uuid.UUID, platformID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE commands SET platform_id = $2 WHERE id = $1`,
		id, platformID,
	)
	if err != nil {
		return fmt.Errorf("commandRepo.SetPlatformID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commandRepo.SetPlatformID: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CommandRepo) Delete(ctx context.Context, botID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM commands WHERE bot_id = $1 AND id = $2`,
		botID, id,
	)
	if err != nil {
		return fmt.Errorf("commandRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commandRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
