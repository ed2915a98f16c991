package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditRepository - реализация AuditRepository для базы данных.
type PostgresAuditRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresAuditRepository создаёт новый экземпляр PostgresAuditRepository.
func NewPostgresAuditRepository(db *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{DB: db}
}

// ListAuditEvents возвращает события сущности по времени, при равенстве - по порядку добавления.
func (r *PostgresAuditRepository) ListAuditEvents(ctx context.Context, entityId string) ([]models.AuditEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, entity_id, seq, occurred_at, category, description,
		       COALESCE(actor_id, ''), COALESCE(from_stage, ''), COALESCE(to_stage, '')
		FROM audit_event WHERE entity_id = $1 ORDER BY occurred_at, seq`, entityId)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := []models.AuditEvent{}
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.EntityID, &e.Sequence, &e.Timestamp, &e.Category, &e.Description, &e.ActorID, &e.FromStage, &e.ToStage); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// insertAuditEvent вызывается под блокировкой строки сущности. Время события
// не раньше последнего события той же сущности.
func insertAuditEvent(ctx context.Context, q querier, event models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO audit_event (id, entity_id, occurred_at, category, description, actor_id, from_stage, to_stage)
		VALUES ($1, $2,
		        GREATEST($3::timestamptz, (SELECT max(occurred_at) FROM audit_event WHERE entity_id = $2)),
		        $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))`,
		event.ID,
		event.EntityID,
		event.Timestamp,
		event.Category,
		event.Description,
		event.ActorID,
		event.FromStage,
		event.ToStage)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}
