package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresContractRepository - реализация ContractRepository для базы данных.
type PostgresContractRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresContractRepository создает новый экземпляр PostgresContractRepository.
func NewPostgresContractRepository(db *pgxpool.Pool) *PostgresContractRepository {
	return &PostgresContractRepository{DB: db}
}

// GetContract возвращает контракт со всеми журналами.
func (r *PostgresContractRepository) GetContract(ctx context.Context, contractId string) (*models.Contract, error) {
	return loadContract(ctx, r.DB, contractId, false)
}

// UpdateContract блокирует строку контракта, применяет изменение и дописывает
// новые записи журналов и событие аудита в одной транзакции.
func (r *PostgresContractRepository) UpdateContract(ctx context.Context, contractId string, mutate ContractMutation) (*models.Contract, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	contract, err := loadContract(ctx, tx, contractId, true)
	if err != nil {
		return nil, err
	}
	commitmentCount, deliveryCount, paymentCount := len(contract.Commitments), len(contract.Deliveries), len(contract.Payments)

	event, err := mutate(contract)
	if err != nil {
		return nil, err
	}

	for i, commitment := range contract.Commitments[commitmentCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO commitment (id, contract_id, position, date, amount, authorizer_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			commitment.ID, contract.ID, commitmentCount+i, commitment.Date, commitment.Amount, commitment.AuthorizerID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("commitment %s: %w", commitment.ID, ErrConflict)
			}
			return nil, fmt.Errorf("failed to insert commitment: %w", err)
		}
	}

	for i, delivery := range contract.Deliveries[deliveryCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO delivery (id, contract_id, position, date, description, responsible_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			delivery.ID, contract.ID, deliveryCount+i, delivery.Date, delivery.Description, delivery.ResponsibleID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert delivery: %w", err)
		}
		for position, item := range delivery.Items {
			_, err = tx.Exec(ctx, `INSERT INTO delivery_item (delivery_id, position, item_id, quantity) VALUES ($1, $2, $3, $4)`,
				delivery.ID, position, item.ItemID, item.Quantity)
			if err != nil {
				return nil, fmt.Errorf("failed to insert delivered item: %w", err)
			}
		}
	}

	for i, payment := range contract.Payments[paymentCount:] {
		_, err = tx.Exec(ctx, `
			INSERT INTO payment (id, contract_id, position, date, amount, description, authorizer_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			payment.ID, contract.ID, paymentCount+i, payment.Date, payment.Amount, payment.Description, payment.AuthorizerID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("payment %s: %w", payment.ID, ErrConflict)
			}
			return nil, fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	if err := insertAuditEvent(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return contract, nil
}

func insertContract(ctx context.Context, q querier, contract models.Contract) error {
	_, err := q.Exec(ctx, `
		INSERT INTO contract (id, process_id, supplier_id, supplier_name, start_date, end_date, value, inspector_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		contract.ID,
		contract.ProcessID,
		contract.Supplier.ID,
		contract.Supplier.Name,
		contract.StartDate,
		contract.EndDate,
		contract.Value,
		contract.InspectorID,
		contract.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contract %s: %w", contract.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func loadContract(ctx context.Context, q querier, contractId string, forUpdate bool) (*models.Contract, error) {
	query := `SELECT id, process_id, supplier_id, supplier_name, start_date, end_date, value, inspector_id, created_at
	          FROM contract WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var c models.Contract
	err := q.QueryRow(ctx, query, contractId).Scan(
		&c.ID,
		&c.ProcessID,
		&c.Supplier.ID,
		&c.Supplier.Name,
		&c.StartDate,
		&c.EndDate,
		&c.Value,
		&c.InspectorID,
		&c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT id, date, amount, authorizer_id
	                           FROM commitment WHERE contract_id = $1 ORDER BY position`, contractId)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitments: %w", err)
	}
	c.Commitments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Commitment, error) {
		commitment := models.Commitment{ContractID: contractId}
		err := row.Scan(&commitment.ID, &commitment.Date, &commitment.Amount, &commitment.AuthorizerID)
		return commitment, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load commitments: %w", err)
	}

	// Строки одной поставки идут подряд; поставка без позиций даёт одну строку с NULL.
	rows, err = q.Query(ctx, `SELECT d.id, d.date, d.description, d.responsible_id, i.item_id, i.quantity
	                          FROM delivery d LEFT JOIN delivery_item i ON i.delivery_id = d.id
	                          WHERE d.contract_id = $1 ORDER BY d.position, i.position`, contractId)
	if err != nil {
		return nil, fmt.Errorf("failed to load deliveries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		delivery := models.Delivery{ContractID: contractId}
		var itemId *string
		var quantity *int
		if err := rows.Scan(&delivery.ID, &delivery.Date, &delivery.Description, &delivery.ResponsibleID, &itemId, &quantity); err != nil {
			return nil, err
		}
		if n := len(c.Deliveries); n == 0 || c.Deliveries[n-1].ID != delivery.ID {
			c.Deliveries = append(c.Deliveries, delivery)
		}
		if itemId != nil && quantity != nil {
			last := &c.Deliveries[len(c.Deliveries)-1]
			last.Items = append(last.Items, models.DeliveredItem{ItemID: *itemId, Quantity: *quantity})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load deliveries: %w", err)
	}
	rows.Close()

	rows, err = q.Query(ctx, `SELECT id, date, amount, description, authorizer_id
	                          FROM payment WHERE contract_id = $1 ORDER BY position`, contractId)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	c.Payments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Payment, error) {
		payment := models.Payment{ContractID: contractId}
		err := row.Scan(&payment.ID, &payment.Date, &payment.Amount, &payment.Description, &payment.AuthorizerID)
		return payment, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return &c, nil
}
