package repository

import (
	"context"
	"errors"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresActorRegistry читает участников из таблицы actor.
type PostgresActorRegistry struct {
	DB *pgxpool.Pool
}

// NewPostgresActorRegistry создаёт новый экземпляр PostgresActorRegistry.
func NewPostgresActorRegistry(db *pgxpool.Pool) *PostgresActorRegistry {
	return &PostgresActorRegistry{DB: db}
}

// GetActor возвращает участника по идентификатору.
func (r *PostgresActorRegistry) GetActor(ctx context.Context, actorId string) (*models.Actor, error) {
	var actor models.Actor
	err := r.DB.QueryRow(ctx, `SELECT id, name, role FROM actor WHERE id = $1`, actorId).
		Scan(&actor.ID, &actor.Name, &actor.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &actor, nil
}
