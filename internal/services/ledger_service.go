package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/google/uuid"
)

// LedgerService ведёт журналы обязательств, поставок и оплат по контракту.
type LedgerService struct {
	Contracts repository.ContractRepository
	Processes repository.ProcessRepository
	Metrics   *metrics.Recorder
	Now       func() time.Time
}

// NewLedgerService создаёт новый экземпляр LedgerService.
func NewLedgerService(contracts repository.ContractRepository, processes repository.ProcessRepository, recorder *metrics.Recorder) *LedgerService {
	return &LedgerService{Contracts: contracts, Processes: processes, Metrics: recorder, Now: utcNow}
}

// RecordCommitment регистрирует бюджетное обязательство. Доступно только распорядителю расходов.
func (s *LedgerService) RecordCommitment(ctx context.Context, contractId string, req models.CommitmentRequest, authorizer models.Actor) (commitment *models.Commitment, err error) {
	defer func() { s.Metrics.Observe("record_commitment", err) }()

	if !utils.ContainsRole(ledgerRoles, authorizer.Role) {
		return nil, models.NewDomainError(models.KindUnauthorized, fmt.Sprintf("role %s may not record commitments", authorizer.Role))
	}
	if req.ID == "" {
		return nil, models.NewDomainError(models.KindValidation, "commitment id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, models.NewDomainError(models.KindValidation, "commitment amount must be positive")
	}
	if err := checkMoneyScale("commitment amount", req.Amount); err != nil {
		return nil, err
	}

	_, err = s.Contracts.UpdateContract(ctx, contractId, func(c *models.Contract) (models.AuditEvent, error) {
		if c.HasCommitment(req.ID) {
			return models.AuditEvent{}, models.NewDomainError(models.KindValidation,
				fmt.Sprintf("commitment %s already recorded for contract %s", req.ID, c.ID))
		}
		now := s.Now()
		commitment = &models.Commitment{
			ID:           req.ID,
			ContractID:   c.ID,
			Date:         dateOr(req.Date, now),
			Amount:       req.Amount,
			AuthorizerID: authorizer.ID,
		}
		c.Commitments = append(c.Commitments, *commitment)
		return models.AuditEvent{
			EntityID:    c.ID,
			Timestamp:   now,
			Category:    models.CommitmentRecorded,
			Description: fmt.Sprintf("commitment %s of %s recorded for contract %s", commitment.ID, commitment.Amount.StringFixed(2), c.ID),
			ActorID:     authorizer.ID,
		}, nil
	})
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return commitment, nil
}

// RecordDelivery регистрирует поставку. Суммарно поставленное количество позиции
// не может превышать заказанное в процессе.
func (s *LedgerService) RecordDelivery(ctx context.Context, contractId string, req models.DeliveryRequest, responsible models.Actor) (delivery *models.Delivery, err error) {
	defer func() { s.Metrics.Observe("record_delivery", err) }()

	if len(req.Items) == 0 {
		return nil, models.NewDomainError(models.KindValidation, "delivery must list at least one item")
	}

	current, err := s.Contracts.GetContract(ctx, contractId)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	// Позиции процесса неизменны и только дописываются, поэтому читаются вне блокировки контракта.
	process, err := s.Processes.GetProcess(ctx, current.ProcessID)
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}

	requested := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 0 {
			return nil, models.NewDomainError(models.KindValidation, fmt.Sprintf("delivered quantity of item %s must not be negative", item.ItemID))
		}
		if _, ok := process.Item(item.ItemID); !ok {
			return nil, models.NewDomainError(models.KindValidation, fmt.Sprintf("item %s does not belong to process %s", item.ItemID, process.ID))
		}
		requested[item.ItemID] += item.Quantity
	}

	_, err = s.Contracts.UpdateContract(ctx, contractId, func(c *models.Contract) (models.AuditEvent, error) {
		for itemId, quantity := range requested {
			ordered, _ := process.Item(itemId)
			if delivered := c.DeliveredQuantity(itemId); delivered+quantity > ordered.Quantity {
				return models.AuditEvent{}, models.NewDomainError(models.KindValidation,
					fmt.Sprintf("item %s: delivering %d more exceeds ordered quantity %d (already delivered %d)", itemId, quantity, ordered.Quantity, delivered))
			}
		}
		now := s.Now()
		delivery = &models.Delivery{
			ID:            uuid.NewString(),
			ContractID:    c.ID,
			Date:          dateOr(req.Date, now),
			Description:   req.Description,
			ResponsibleID: responsible.ID,
			Items:         append([]models.DeliveredItem(nil), req.Items...),
		}
		c.Deliveries = append(c.Deliveries, *delivery)
		return models.AuditEvent{
			EntityID:    c.ID,
			Timestamp:   now,
			Category:    models.DeliveryRecorded,
			Description: fmt.Sprintf("delivery recorded for contract %s: %s", c.ID, req.Description),
			ActorID:     responsible.ID,
		}, nil
	})
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return delivery, nil
}

// RecordPayment регистрирует оплату. Доступно только распорядителю расходов;
// сумма оплат не может превышать стоимость контракта.
func (s *LedgerService) RecordPayment(ctx context.Context, contractId string, req models.PaymentRequest, authorizer models.Actor) (payment *models.Payment, err error) {
	defer func() { s.Metrics.Observe("record_payment", err) }()

	if !utils.ContainsRole(ledgerRoles, authorizer.Role) {
		return nil, models.NewDomainError(models.KindUnauthorized, fmt.Sprintf("role %s may not authorize payments", authorizer.Role))
	}
	if req.ID == "" {
		return nil, models.NewDomainError(models.KindValidation, "payment id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, models.NewDomainError(models.KindValidation, "payment amount must be positive")
	}
	if err := checkMoneyScale("payment amount", req.Amount); err != nil {
		return nil, err
	}

	_, err = s.Contracts.UpdateContract(ctx, contractId, func(c *models.Contract) (models.AuditEvent, error) {
		if c.HasPayment(req.ID) {
			return models.AuditEvent{}, models.NewDomainError(models.KindValidation,
				fmt.Sprintf("payment %s already recorded for contract %s", req.ID, c.ID))
		}
		if paid := c.TotalPaid().Add(req.Amount); paid.GreaterThan(c.Value) {
			return models.AuditEvent{}, models.NewDomainError(models.KindPaymentExceedsValue,
				fmt.Sprintf("payments would total %s, contract %s is valued %s", paid.StringFixed(2), c.ID, c.Value.StringFixed(2)))
		}
		now := s.Now()
		payment = &models.Payment{
			ID:           req.ID,
			ContractID:   c.ID,
			Date:         dateOr(req.Date, now),
			Amount:       req.Amount,
			Description:  req.Description,
			AuthorizerID: authorizer.ID,
		}
		c.Payments = append(c.Payments, *payment)
		return models.AuditEvent{
			EntityID:    c.ID,
			Timestamp:   now,
			Category:    models.PaymentRecorded,
			Description: fmt.Sprintf("payment %s of %s recorded for contract %s", payment.ID, payment.Amount.StringFixed(2), c.ID),
			ActorID:     authorizer.ID,
		}, nil
	})
	if err != nil {
		return nil, mapLedgerError(err)
	}
	s.Metrics.AddPaid(payment.Amount.InexactFloat64())
	return payment, nil
}

// GetContract возвращает контракт по идентификатору.
func (s *LedgerService) GetContract(ctx context.Context, contractId string) (*models.Contract, error) {
	contract, err := s.Contracts.GetContract(ctx, contractId)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return contract, nil
}

// Summary возвращает финансовое состояние контракта.
func (s *LedgerService) Summary(ctx context.Context, contractId string) (*models.ContractSummary, error) {
	contract, err := s.GetContract(ctx, contractId)
	if err != nil {
		return nil, err
	}

	delivered := make(map[string]int)
	for _, d := range contract.Deliveries {
		for _, item := range d.Items {
			delivered[item.ItemID] += item.Quantity
		}
	}
	return &models.ContractSummary{
		ContractID:     contract.ID,
		Value:          contract.Value,
		TotalCommitted: contract.TotalCommitted(),
		TotalPaid:      contract.TotalPaid(),
		Balance:        contract.Balance(),
		PaidFraction:   contract.PaidFraction(),
		Delivered:      delivered,
	}, nil
}

func mapLedgerError(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return models.NewDomainError(models.KindValidation, "ledger entry already recorded")
	}
	return mapRepoError(err, "contract not found")
}

func dateOr(date, fallback time.Time) time.Time {
	if date.IsZero() {
		return fallback
	}
	return date
}
