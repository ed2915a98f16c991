package repository

import (
	"context"
	"errors"

	"github.com/senyabanana/procurement-service/internal/models"
)

var (
	// ErrNotFound возвращается, если сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrConflict возвращается при повторном идентификаторе.
	ErrConflict = errors.New("conflict")
)

// ProcessChange описывает результат изменения процесса.
// Event сохраняется вместе с изменением; Contract, если задан, создаётся в той же операции.
type ProcessChange struct {
	Event    models.AuditEvent
	Contract *models.Contract
}

// ProcessMutation изменяет копию процесса. При ошибке изменения не сохраняются.
type ProcessMutation func(process *models.Process) (ProcessChange, error)

// ContractMutation изменяет копию контракта. При ошибке изменения не сохраняются.
type ContractMutation func(contract *models.Contract) (models.AuditEvent, error)

// ProcessRepository - интерфейс для работы с процессами закупки.
// Изменения одного процесса выполняются последовательно.
type ProcessRepository interface {
	NextProcessSequence(ctx context.Context) (int64, error)
	CreateProcess(ctx context.Context, process models.Process, event models.AuditEvent) error
	GetProcess(ctx context.Context, processId string) (*models.Process, error)
	ListProcesses(ctx context.Context, limit, offset int, stages []string) ([]models.Process, error)
	UpdateProcess(ctx context.Context, processId string, mutate ProcessMutation) (*models.Process, error)
}

// ContractRepository - интерфейс для работы с контрактами.
// Изменения одного контракта выполняются последовательно.
type ContractRepository interface {
	GetContract(ctx context.Context, contractId string) (*models.Contract, error)
	UpdateContract(ctx context.Context, contractId string, mutate ContractMutation) (*models.Contract, error)
}

// AuditRepository - интерфейс для чтения журнала аудита.
type AuditRepository interface {
	ListAuditEvents(ctx context.Context, entityId string) ([]models.AuditEvent, error)
}

// ActorRegistry - внешний реестр участников, только для чтения.
type ActorRegistry interface {
	GetActor(ctx context.Context, actorId string) (*models.Actor, error)
}
