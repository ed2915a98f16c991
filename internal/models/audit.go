package models

import "time"

// AuditCategory - тип события аудита.
type AuditCategory string

const (
	ProcessOpened      AuditCategory = "process.opened"
	ItemAdded          AuditCategory = "process.item_added"
	DocumentAdded      AuditCategory = "process.document_added"
	BidRegistered      AuditCategory = "process.bid_registered"
	StageChanged       AuditCategory = "process.stage_changed"
	BidSelected        AuditCategory = "process.bid_selected"
	ContractCreated    AuditCategory = "contract.created"
	CommitmentRecorded AuditCategory = "contract.commitment_recorded"
	DeliveryRecorded   AuditCategory = "contract.delivery_recorded"
	PaymentRecorded    AuditCategory = "contract.payment_recorded"
)

// AuditEvent - неизменяемая запись о выполненной операции.
// События одной сущности упорядочены по Timestamp, при равенстве - по Sequence;
// хранилище не допускает, чтобы Timestamp события был раньше предыдущего события той же сущности.
// FromStage и ToStage заполняются для смены этапа.
type AuditEvent struct {
	ID          string        `json:"id"`
	EntityID    string        `json:"entityId"`
	Sequence    int64         `json:"sequence"`
	Timestamp   time.Time     `json:"timestamp"`
	Category    AuditCategory `json:"category"`
	Description string        `json:"description"`
	ActorID     string        `json:"actorId,omitempty"`
	FromStage   Stage         `json:"fromStage,omitempty"`
	ToStage     Stage         `json:"toStage,omitempty"`
}
