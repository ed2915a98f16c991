package services

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
)

// AuditService читает журнал аудита. Запись в журнал выполняют репозитории
// вместе с изменением сущности.
type AuditService struct {
	Repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{Repo: repo}
}

// ListEvents возвращает события процесса или контракта в порядке применения.
func (s *AuditService) ListEvents(ctx context.Context, entityId string) ([]models.AuditEvent, error) {
	return s.Repo.ListAuditEvents(ctx, entityId)
}
