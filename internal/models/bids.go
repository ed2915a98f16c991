package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid представляет модель предложения поставщика.
// Предложение неизменно после регистрации.
type Bid struct {
	ID          string          `json:"id"`
	ProcessID   string          `json:"processId"`
	Supplier    Supplier        `json:"supplier"`
	SubmittedAt time.Time       `json:"submittedAt"`
	Value       decimal.Decimal `json:"value"`
	Note        string          `json:"note"`
}

// BidRequest представляет структуру запроса для регистрации предложения.
type BidRequest struct {
	Supplier    Supplier        `json:"supplier"`
	SubmittedAt time.Time       `json:"submittedAt"`
	Value       decimal.Decimal `json:"value"`
	Note        string          `json:"note"`
}
