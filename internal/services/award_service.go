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
)

// AwardService выбирает победителя и заключает контракт.
type AwardService struct {
	Repo    repository.ProcessRepository
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// NewAwardService создаёт новый экземпляр AwardService.
func NewAwardService(repo repository.ProcessRepository, recorder *metrics.Recorder) *AwardService {
	return &AwardService{Repo: repo, Metrics: recorder, Now: utcNow}
}

// SelectWinningBid отмечает предложение победителем. Победитель выбирается один раз.
func (s *AwardService) SelectWinningBid(ctx context.Context, processId, bidId string, actor models.Actor) (process *models.Process, err error) {
	defer func() { s.Metrics.Observe("select_bid", err) }()

	if !utils.ContainsRole(selectBidRoles, actor.Role) {
		return nil, models.NewDomainError(models.KindUnauthorized, fmt.Sprintf("role %s may not select the winning bid", actor.Role))
	}

	process, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		if p.SelectedBidID != "" {
			return repository.ProcessChange{}, models.NewDomainError(models.KindAlreadyAwarded,
				fmt.Sprintf("process %s already awarded to bid %s", p.ID, p.SelectedBidID))
		}
		bid, ok := p.Bid(bidId)
		if !ok {
			return repository.ProcessChange{}, models.NewDomainError(models.KindInvalidBid,
				fmt.Sprintf("bid %s does not belong to process %s", bidId, p.ID))
		}
		p.SelectedBidID = bid.ID
		return repository.ProcessChange{Event: models.AuditEvent{
			EntityID:    p.ID,
			Timestamp:   s.Now(),
			Category:    models.BidSelected,
			Description: fmt.Sprintf("bid from %s valued %s selected as winner of process %s", bid.Supplier.Name, bid.Value.StringFixed(2), p.ID),
			ActorID:     actor.ID,
		}}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "process not found")
	}
	return process, nil
}

// CreateContract заключает контракт с поставщиком выбранного предложения.
// Процесс должен находиться на этапе CONTRACTING.
func (s *AwardService) CreateContract(ctx context.Context, processId string, req models.ContractRequest, inspector models.Actor) (contract *models.Contract, err error) {
	defer func() { s.Metrics.Observe("create_contract", err) }()

	_, err = s.Repo.UpdateProcess(ctx, processId, func(p *models.Process) (repository.ProcessChange, error) {
		if p.Stage != models.Contracting {
			return repository.ProcessChange{}, models.NewDomainError(models.KindInvalidStage,
				fmt.Sprintf("process %s is in stage %s, contracts are created in %s", p.ID, p.Stage, models.Contracting))
		}
		if !utils.ContainsRole(createContractRoles, inspector.Role) {
			return repository.ProcessChange{}, models.NewDomainError(models.KindUnauthorized,
				fmt.Sprintf("role %s may not oversee contracts", inspector.Role))
		}
		if p.ContractID != "" {
			return repository.ProcessChange{}, models.NewDomainError(models.KindInvalidStage,
				fmt.Sprintf("process %s already bound to contract %s", p.ID, p.ContractID))
		}
		bid, ok := p.SelectedBid()
		if !ok {
			return repository.ProcessChange{}, models.NewDomainError(models.KindNoAward,
				fmt.Sprintf("process %s has no winning bid", p.ID))
		}
		if req.ContractID == "" {
			return repository.ProcessChange{}, models.NewDomainError(models.KindValidation, "contract id is required")
		}
		if req.EndDate.Before(req.StartDate) {
			return repository.ProcessChange{}, models.NewDomainError(models.KindValidation, "contract end date is before start date")
		}
		if !req.Value.IsPositive() {
			return repository.ProcessChange{}, models.NewDomainError(models.KindValidation, "contract value must be positive")
		}
		if err := checkMoneyScale("contract value", req.Value); err != nil {
			return repository.ProcessChange{}, err
		}

		now := s.Now()
		contract = &models.Contract{
			ID:          req.ContractID,
			ProcessID:   p.ID,
			Supplier:    bid.Supplier,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Value:       req.Value,
			InspectorID: inspector.ID,
			CreatedAt:   now,
		}
		p.ContractID = contract.ID
		return repository.ProcessChange{
			Event: models.AuditEvent{
				EntityID:    p.ID,
				Timestamp:   now,
				Category:    models.ContractCreated,
				Description: fmt.Sprintf("contract %s created for process %s", contract.ID, p.ID),
				ActorID:     inspector.ID,
			},
			Contract: contract,
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, models.NewDomainError(models.KindValidation, fmt.Sprintf("contract %s already exists", req.ContractID))
		}
		return nil, mapRepoError(err, "process not found")
	}
	return contract, nil
}
