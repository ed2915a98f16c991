package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProcessService struct {
	Repo    repository.ProcessRepository
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// NewProcessService создаёт новый экземпляр ProcessService.
func NewProcessService(repo repository.ProcessRepository, recorder *metrics.Recorder) *ProcessService {
	return &ProcessService{Repo: repo, Metrics: recorder, Now: utcNow}
}

// OpenProcess открывает новый процесс закупки на этапе TOR_DRAFTING.
func (s *ProcessService) OpenProcess(ctx context.Context, req models.ProcessRequest, owner models.Actor) (process *models.Process, err error) {
	defer func() { s.Metrics.Observe("open_process", err) }()

	if !utils.ContainsRole(openProcessRoles, owner.Role) {
		return nil, models.NewDomainError(models.KindUnauthorized, fmt.Sprintf("role %s may not open procurement processes", owner.Role))
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, models.NewDomainError(models.KindValidation, "title is required")
	}
	if !req.Modality.IsValid() {
		return nil, models.NewDomainError(models.KindValidation, fmt.Sprintf("unsupported modality: %s", req.Modality))
	}
	if !req.EstimatedValue.IsPositive() {
		return nil, models.NewDomainError(models.KindValidation, "estimated value must be positive")
	}
	if err := checkMoneyScale("estimated value", req.EstimatedValue); err != nil {
		return nil, err
	}

	seq, err := s.Repo.NextProcessSequence(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	newProcess := models.Process{
		ID:             fmt.Sprintf("PA-%d-%04d", now.Year(), seq),
		Number:         seq,
		Title:          req.Title,
		Description:    req.Description,
		OwnerID:        owner.ID,
		Modality:       req.Modality,
		OpenDate:       req.OpenDate,
		EstimatedValue: req.EstimatedValue,
		Stage:          models.TorDrafting,
		CreatedAt:      now,
	}
	if newProcess.OpenDate.IsZero() {
		newProcess.OpenDate = now
	}

	event := models.AuditEvent{
		EntityID:    newProcess.ID,
		Timestamp:   now,
		Category:    models.ProcessOpened,
		Description: fmt.Sprintf("process %s opened", newProcess.ID),
		ActorID:     owner.ID,
	}
	if err := s.Repo.CreateProcess(ctx, newProcess, event); err != nil {
		return nil, err
	}
	return &newProcess, nil
}

// AddItem добавляет позицию к процессу.
func (s *ProcessService) AddItem(ctx context.Context, processId string, req models.ItemRequest, actor models.Actor) (item *models.Item, err error) {
	defer func() { s.Metrics.Observe("add_item", err) }()

	if strings.TrimSpace(req.Name) == "" {
		return nil, models.NewDomainError(models.KindValidation, "item name is required")
	}
	if req.Quantity <= 0 {
		return nil, models.NewDomainError(models.KindValidation, "item quantity must be positive")
	}
	if req.UnitPrice.IsNegative() {
		return nil, models.NewDomainError(models.KindValidation, "item unit price must not be negative")
	}
	if err := checkMoneyScale("item unit price", req.UnitPrice); err != nil {
		return nil, err
	}
	if !req.Unit.IsValid() {
		return nil, models.NewDomainError(models.KindValidation, fmt.Sprintf("unsupported unit: %s", req.Unit))
	}

	newItem := models.Item{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
	}
	_, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		p.Items = append(p.Items, newItem)
		return repository.ProcessChange{Event: models.AuditEvent{
			EntityID:    p.ID,
			Timestamp:   s.Now(),
			Category:    models.ItemAdded,
			Description: fmt.Sprintf("item %q added to process %s", newItem.Name, p.ID),
			ActorID:     actor.ID,
		}}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return &newItem, nil
}

// AddDocument добавляет документ к процессу.
func (s *ProcessService) AddDocument(ctx context.Context, processId string, req models.DocumentRequest, author models.Actor) (doc *models.Document, err error) {
	defer func() { s.Metrics.Observe("add_document", err) }()

	if strings.TrimSpace(req.Title) == "" {
		return nil, models.NewDomainError(models.KindValidation, "document title is required")
	}

	newDoc := models.Document{
		ID:       uuid.NewString(),
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: author.ID,
	}
	_, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		now := s.Now()
		newDoc.CreatedAt = now
		p.Documents = append(p.Documents, newDoc)
		return repository.ProcessChange{Event: models.AuditEvent{
			EntityID:    p.ID,
			Timestamp:   now,
			Category:    models.DocumentAdded,
			Description: fmt.Sprintf("document %q added to process %s", newDoc.Title, p.ID),
			ActorID:     author.ID,
		}}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return &newDoc, nil
}

// RegisterBid регистрирует предложение поставщика. После выбора победителя предложения не принимаются.
func (s *ProcessService) RegisterBid(ctx context.Context, processId string, req models.BidRequest) (bid *models.Bid, err error) {
	defer func() { s.Metrics.Observe("register_bid", err) }()

	if req.Supplier.ID == "" || req.Supplier.Name == "" {
		return nil, models.NewDomainError(models.KindValidation, "supplier id and name are required")
	}
	if req.Value.IsNegative() {
		return nil, models.NewDomainError(models.KindValidation, "bid value must not be negative")
	}
	if err := checkMoneyScale("bid value", req.Value); err != nil {
		return nil, err
	}

	newBid := models.Bid{
		ID:          uuid.NewString(),
		ProcessID:   processId,
		Supplier:    req.Supplier,
		SubmittedAt: req.SubmittedAt,
		Value:       req.Value,
		Note:        req.Note,
	}
	_, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		if p.SelectedBidID != "" {
			return repository.ProcessChange{}, models.NewDomainError(models.KindAlreadyAwarded, "process already has a winning bid")
		}
		now := s.Now()
		if newBid.SubmittedAt.IsZero() {
			newBid.SubmittedAt = now
		}
		p.Bids = append(p.Bids, newBid)
		return repository.ProcessChange{Event: models.AuditEvent{
			EntityID:    p.ID,
			Timestamp:   now,
			Category:    models.BidRegistered,
			Description: fmt.Sprintf("bid from %s registered for process %s", newBid.Supplier.Name, p.ID),
		}}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return &newBid, nil
}

// Transition переводит процесс на этап target, если роль участника это разрешает.
// Следование этапов по порядку не проверяется.
func (s *ProcessService) Transition(ctx context.Context, processId string, target models.Stage, actor models.Actor) (process *models.Process, err error) {
	defer func() { s.Metrics.Observe("transition", err) }()

	process, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		if !CanTransition(actor.Role, target) {
			return repository.ProcessChange{}, models.NewDomainError(models.KindUnauthorized,
				fmt.Sprintf("role %s may not move process to stage %s", actor.Role, target))
		}
		previous := p.Stage
		p.Stage = target
		return repository.ProcessChange{Event: models.AuditEvent{
			EntityID:    p.ID,
			Timestamp:   s.Now(),
			Category:    models.StageChanged,
			Description: fmt.Sprintf("process %s moved from %s to %s", p.ID, previous, target),
			ActorID:     actor.ID,
			FromStage:   previous,
			ToStage:     target,
		}}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return process, nil
}

// GetProcess возвращает процесс по идентификатору.
func (s *ProcessService) GetProcess(ctx context.Context, processId string) (*models.Process, error) {
	process, err := s.Repo.GetProcess(ctx, processId)
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return process, nil
}

// ListProcesses получает список процессов с фильтром по этапам.
func (s *ProcessService) ListProcesses(ctx context.Context, limitStr, offsetStr string, stages []string) ([]models.Process, error) {
	for _, stage := range stages {
		if !models.Stage(stage).IsValid() {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unsupported stage: %s", stage))
		}
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}
	return s.Repo.ListProcesses(ctx, limit, offset, stages)
}

func mapRepoError(err error, notFoundMessage string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewDomainError(models.KindNotFound, notFoundMessage)
	}
	return err
}

// checkMoneyScale отклоняет суммы, которые хранилище округлило бы.
func checkMoneyScale(field string, amount decimal.Decimal) error {
	if !models.FitsMoneyScale(amount) {
		return models.NewDomainError(models.KindValidation,
			fmt.Sprintf("%s must have at most %d decimal places", field, models.MoneyScale))
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
