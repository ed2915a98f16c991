package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/google/uuid"
)

type processEntry struct {
	mu      sync.Mutex
	process models.Process
}

type contractEntry struct {
	mu       sync.Mutex
	contract models.Contract
}

// MemoryStore - хранилище в памяти, реализующее все интерфейсы репозиториев.
// Каждый процесс и контракт защищён собственным мьютексом; событие аудита
// добавляется под тем же мьютексом, что и изменение сущности.
type MemoryStore struct {
	mu        sync.RWMutex
	processes map[string]*processEntry
	contracts map[string]*contractEntry
	actors    map[string]models.Actor
	sequence  int64

	auditMu   sync.Mutex
	audit     []models.AuditEvent
	auditSeq  int64
	lastAudit map[string]time.Time
}

// NewMemoryStore создаёт новое хранилище в памяти с заданными участниками.
func NewMemoryStore(actors ...models.Actor) *MemoryStore {
	store := &MemoryStore{
		processes: make(map[string]*processEntry),
		contracts: make(map[string]*contractEntry),
		actors:    make(map[string]models.Actor),
		lastAudit: make(map[string]time.Time),
	}
	for _, actor := range actors {
		store.actors[actor.ID] = actor
	}
	return store
}

// RegisterActor добавляет участника в реестр.
func (s *MemoryStore) RegisterActor(actor models.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[actor.ID] = actor
}

// GetActor возвращает участника по идентификатору.
func (s *MemoryStore) GetActor(ctx context.Context, actorId string) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actor, ok := s.actors[actorId]
	if !ok {
		return nil, ErrNotFound
	}
	return &actor, nil
}

// NextProcessSequence возвращает следующий номер последовательности процессов.
func (s *MemoryStore) NextProcessSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	return s.sequence, nil
}

// CreateProcess сохраняет новый процесс и событие о его открытии.
func (s *MemoryStore) CreateProcess(ctx context.Context, process models.Process, event models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[process.ID]; exists {
		return fmt.Errorf("process %s: %w", process.ID, ErrConflict)
	}
	s.processes[process.ID] = &processEntry{process: process.Clone()}
	s.appendAudit(event)
	return nil
}

// GetProcess возвращает копию процесса.
func (s *MemoryStore) GetProcess(ctx context.Context, processId string) (*models.Process, error) {
	entry, err := s.processEntry(processId)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	process := entry.process.Clone()
	return &process, nil
}

// ListProcesses возвращает процессы, упорядоченные по номеру последовательности.
func (s *MemoryStore) ListProcesses(ctx context.Context, limit, offset int, stages []string) ([]models.Process, error) {
	s.mu.RLock()
	entries := make([]*processEntry, 0, len(s.processes))
	for _, entry := range s.processes {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	allowed := make(map[models.Stage]bool, len(stages))
	for _, stage := range stages {
		allowed[models.Stage(stage)] = true
	}

	var processes []models.Process
	for _, entry := range entries {
		entry.mu.Lock()
		process := entry.process.Clone()
		entry.mu.Unlock()

		if len(allowed) > 0 && !allowed[process.Stage] {
			continue
		}
		processes = append(processes, process)
	}
	sort.Slice(processes, func(i, j int) bool {
		if processes[i].Number != processes[j].Number {
			return processes[i].Number < processes[j].Number
		}
		return processes[i].ID < processes[j].ID
	})

	if offset >= len(processes) {
		return []models.Process{}, nil
	}
	end := offset + limit
	if end > len(processes) {
		end = len(processes)
	}
	return processes[offset:end], nil
}

// UpdateProcess применяет изменение к копии процесса и сохраняет её только при успехе.
func (s *MemoryStore) UpdateProcess(ctx context.Context, processId string, mutate ProcessMutation) (*models.Process, error) {
	entry, err := s.processEntry(processId)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	draft := entry.process.Clone()
	change, err := mutate(&draft)
	if err != nil {
		return nil, err
	}

	if change.Contract != nil {
		if err := s.insertContract(*change.Contract); err != nil {
			return nil, err
		}
	}

	entry.process = draft
	s.appendAudit(change.Event)

	process := draft.Clone()
	return &process, nil
}

// GetContract возвращает копию контракта.
func (s *MemoryStore) GetContract(ctx context.Context, contractId string) (*models.Contract, error) {
	entry, err := s.contractEntry(contractId)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	contract := entry.contract.Clone()
	return &contract, nil
}

// UpdateContract применяет изменение к копии контракта и сохраняет её только при успехе.
func (s *MemoryStore) UpdateContract(ctx context.Context, contractId string, mutate ContractMutation) (*models.Contract, error) {
	entry, err := s.contractEntry(contractId)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	draft := entry.contract.Clone()
	event, err := mutate(&draft)
	if err != nil {
		return nil, err
	}

	entry.contract = draft
	s.appendAudit(event)

	contract := draft.Clone()
	return &contract, nil
}

// ListAuditEvents возвращает события сущности по времени, при равенстве - по порядку добавления.
func (s *MemoryStore) ListAuditEvents(ctx context.Context, entityId string) ([]models.AuditEvent, error) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	var events []models.AuditEvent
	for _, event := range s.audit {
		if event.EntityID == entityId {
			events = append(events, event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Sequence < events[j].Sequence
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

func (s *MemoryStore) processEntry(processId string) (*processEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.processes[processId]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) contractEntry(contractId string) (*contractEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.contracts[contractId]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// insertContract вызывается под мьютексом процесса; порядок захвата: процесс, затем s.mu.
func (s *MemoryStore) insertContract(contract models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contracts[contract.ID]; exists {
		return fmt.Errorf("contract %s: %w", contract.ID, ErrConflict)
	}
	s.contracts[contract.ID] = &contractEntry{contract: contract.Clone()}
	return nil
}

func (s *MemoryStore) appendAudit(event models.AuditEvent) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()

	// Время события не раньше предыдущего события той же сущности.
	if last, ok := s.lastAudit[event.EntityID]; ok && event.Timestamp.Before(last) {
		event.Timestamp = last
	}
	s.lastAudit[event.EntityID] = event.Timestamp

	s.auditSeq++
	event.Sequence = s.auditSeq
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	s.audit = append(s.audit, event)
}
