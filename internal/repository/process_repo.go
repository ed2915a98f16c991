package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// querier - общий интерфейс пула соединений и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresProcessRepository - реализация ProcessRepository для базы данных.
type PostgresProcessRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresProcessRepository создаёт новый экземпляр PostgresProcessRepository.
func NewPostgresProcessRepository(db *pgxpool.Pool) *PostgresProcessRepository {
	return &PostgresProcessRepository{DB: db}
}

// NextProcessSequence возвращает следующее значение последовательности процессов.
func (r *PostgresProcessRepository) NextProcessSequence(ctx context.Context) (int64, error) {
	var next int64
	if err := r.DB.QueryRow(ctx, `SELECT nextval('process_number_seq')`).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next process number: %w", err)
	}
	return next, nil
}

// CreateProcess сохраняет новый процесс и событие о его открытии.
func (r *PostgresProcessRepository) CreateProcess(ctx context.Context, process models.Process, event models.AuditEvent) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO process (id, number, title, description, owner_id, modality, open_date, estimated_value, stage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		process.ID,
		process.Number,
		process.Title,
		process.Description,
		process.OwnerID,
		process.Modality,
		process.OpenDate,
		process.EstimatedValue,
		process.Stage,
		process.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("process %s: %w", process.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert process: %w", err)
	}

	if err := insertAuditEvent(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetProcess возвращает процесс со всеми позициями, документами и предложениями.
func (r *PostgresProcessRepository) GetProcess(ctx context.Context, processId string) (*models.Process, error) {
	return loadProcess(ctx, r.DB, processId, false)
}

// ListProcesses возвращает страницу процессов в порядке номеров вместе с позициями,
// документами и предложениями.
func (r *PostgresProcessRepository) ListProcesses(ctx context.Context, limit, offset int, stages []string) ([]models.Process, error) {
	query := processColumns
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(stages) > 0 {
		filters = append(filters, fmt.Sprintf("stage = ANY($%d)", argIndex))
		args = append(args, pq.Array(stages))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY number, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	defer rows.Close()

	processes := []models.Process{}
	for rows.Next() {
		var p models.Process
		if err := scanProcess(rows, &p); err != nil {
			return nil, err
		}
		processes = append(processes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	rows.Close()

	for i := range processes {
		if err := loadProcessCollections(ctx, r.DB, &processes[i]); err != nil {
			return nil, err
		}
	}
	return processes, nil
}

// UpdateProcess блокирует строку процесса, применяет изменение и сохраняет
// новые элементы, контракт и событие аудита в одной транзакции.
func (r *PostgresProcessRepository) UpdateProcess(ctx context.Context, processId string, mutate ProcessMutation) (*models.Process, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	process, err := loadProcess(ctx, tx, processId, true)
	if err != nil {
		return nil, err
	}
	itemCount, documentCount, bidCount := len(process.Items), len(process.Documents), len(process.Bids)

	change, err := mutate(process)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE process SET stage = $1, selected_bid_id = NULLIF($2, ''), contract_id = NULLIF($3, '')
		WHERE id = $4`,
		process.Stage, process.SelectedBidID, process.ContractID, process.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update process: %w", err)
	}

	for i, item := range process.Items[itemCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO process_item (id, process_id, position, name, description, unit_price, quantity, unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, process.ID, itemCount+i, item.Name, item.Description, item.UnitPrice, item.Quantity, item.Unit)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	for i, doc := range process.Documents[documentCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO process_document (id, process_id, position, title, content, author_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			doc.ID, process.ID, documentCount+i, doc.Title, doc.Content, doc.AuthorID, doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert document: %w", err)
		}
	}

	for i, bid := range process.Bids[bidCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO bid (id, process_id, position, supplier_id, supplier_name, submitted_at, total_value, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			bid.ID, process.ID, bidCount+i, bid.Supplier.ID, bid.Supplier.Name, bid.SubmittedAt, bid.Value, bid.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to insert bid: %w", err)
		}
	}

	if change.Contract != nil {
		if err := insertContract(ctx, tx, *change.Contract); err != nil {
			return nil, err
		}
	}

	if err := insertAuditEvent(ctx, tx, change.Event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return process, nil
}

const processColumns = `SELECT id, number, title, description, owner_id, modality, open_date, estimated_value, stage,
                                 COALESCE(selected_bid_id, ''), COALESCE(contract_id, ''), created_at
                          FROM process`

func loadProcess(ctx context.Context, q querier, processId string, forUpdate bool) (*models.Process, error) {
	query := processColumns + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var process models.Process
	if err := scanProcess(q.QueryRow(ctx, query, processId), &process); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := loadProcessCollections(ctx, q, &process); err != nil {
		return nil, err
	}
	return &process, nil
}

func loadProcessCollections(ctx context.Context, q querier, process *models.Process) error {
	rows, err := q.Query(ctx, `SELECT id, name, description, unit_price, quantity, unit
	                           FROM process_item WHERE process_id = $1 ORDER BY position`, process.ID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	process.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Item, error) {
		var item models.Item
		err := row.Scan(&item.ID, &item.Name, &item.Description, &item.UnitPrice, &item.Quantity, &item.Unit)
		return item, err
	})
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT id, title, content, author_id, created_at
	                          FROM process_document WHERE process_id = $1 ORDER BY position`, process.ID)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	process.Documents, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Document, error) {
		var doc models.Document
		err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.AuthorID, &doc.CreatedAt)
		return doc, err
	})
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT id, supplier_id, supplier_name, submitted_at, total_value, note
	                          FROM bid WHERE process_id = $1 ORDER BY position`, process.ID)
	if err != nil {
		return fmt.Errorf("failed to load bids: %w", err)
	}
	process.Bids, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Bid, error) {
		bid := models.Bid{ProcessID: process.ID}
		err := row.Scan(&bid.ID, &bid.Supplier.ID, &bid.Supplier.Name, &bid.SubmittedAt, &bid.Value, &bid.Note)
		return bid, err
	})
	if err != nil {
		return fmt.Errorf("failed to load bids: %w", err)
	}
	return nil
}

func scanProcess(row pgx.Row, p *models.Process) error {
	return row.Scan(
		&p.ID,
		&p.Number,
		&p.Title,
		&p.Description,
		&p.OwnerID,
		&p.Modality,
		&p.OpenDate,
		&p.EstimatedValue,
		&p.Stage,
		&p.SelectedBidID,
		&p.ContractID,
		&p.CreatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
