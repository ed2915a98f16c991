package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	Stage    string // Этап процесса закупки
	Modality string // Способ закупки
	Unit     string // Единица измерения позиции
)

const (
	TorDrafting       Stage = "TOR_DRAFTING"       // Подготовка технического задания
	PriceResearch     Stage = "PRICE_RESEARCH"     // Анализ цен
	NoticeDrafting    Stage = "NOTICE_DRAFTING"    // Подготовка извещения
	NoticePublished   Stage = "NOTICE_PUBLISHED"   // Извещение опубликовано
	BidsReceived      Stage = "BIDS_RECEIVED"      // Приём предложений
	BidsAnalyzed      Stage = "BIDS_ANALYZED"      // Анализ предложений
	Awarded           Stage = "AWARDED"            // Победитель утверждён
	Contracting       Stage = "CONTRACTING"        // Заключение контракта
	ContractExecution Stage = "CONTRACT_EXECUTION" // Исполнение контракта
	Completed         Stage = "COMPLETED"          // Процесс завершён
	Cancelled         Stage = "CANCELLED"          // Процесс отменён
)

// Stages перечисляет этапы в порядке их предполагаемого прохождения.
var Stages = []Stage{
	TorDrafting,
	PriceResearch,
	NoticeDrafting,
	NoticePublished,
	BidsReceived,
	BidsAnalyzed,
	Awarded,
	Contracting,
	ContractExecution,
	Completed,
	Cancelled,
}

// IsValid проверяет, что этап входит в перечисление.
func (s Stage) IsValid() bool {
	for _, stage := range Stages {
		if stage == s {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, завершён ли жизненный цикл.
func (s Stage) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

const (
	DirectAward       Modality = "DIRECT_AWARD"
	Unenforceable     Modality = "UNENFORCEABLE"
	Invitation        Modality = "INVITATION"
	PriceQuotation    Modality = "PRICE_QUOTATION"
	OpenCompetition   Modality = "OPEN_COMPETITION"
	InPersonAuction   Modality = "IN_PERSON_AUCTION"
	ElectronicAuction Modality = "ELECTRONIC_AUCTION"
)

// IsValid проверяет, что способ закупки известен.
func (m Modality) IsValid() bool {
	switch m {
	case DirectAward, Unenforceable, Invitation, PriceQuotation, OpenCompetition, InPersonAuction, ElectronicAuction:
		return true
	}
	return false
}

const (
	UnitPiece       Unit = "UNIT"
	UnitBox         Unit = "BOX"
	UnitPackage     Unit = "PACKAGE"
	UnitMeter       Unit = "METER"
	UnitSquareMeter Unit = "SQUARE_METER"
	UnitLiter       Unit = "LITER"
	UnitKilogram    Unit = "KILOGRAM"
	UnitHour        Unit = "HOUR"
	UnitMonth       Unit = "MONTH"
)

// IsValid проверяет, что единица измерения известна.
func (u Unit) IsValid() bool {
	switch u {
	case UnitPiece, UnitBox, UnitPackage, UnitMeter, UnitSquareMeter, UnitLiter, UnitKilogram, UnitHour, UnitMonth:
		return true
	}
	return false
}

// MoneyScale - число знаков после запятой, с которым хранятся денежные суммы.
const MoneyScale = 2

// FitsMoneyScale сообщает, что сумма сохраняется без округления.
func FitsMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyScale))
}

// Item представляет закупаемую позицию.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Unit        Unit            `json:"unit"`
}

// Total возвращает стоимость позиции.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Document представляет документ, приложенный к процессу.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Process представляет модель процесса закупки.
type Process struct {
	ID             string          `json:"id"`
	Number         int64           `json:"number"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	OwnerID        string          `json:"ownerId"`
	Modality       Modality        `json:"modality"`
	OpenDate       time.Time       `json:"openDate"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
	Stage          Stage           `json:"stage"`
	Items          []Item          `json:"items"`
	Documents      []Document      `json:"documents"`
	Bids           []Bid           `json:"bids"`
	SelectedBidID  string          `json:"selectedBidId,omitempty"`
	ContractID     string          `json:"contractId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Bid ищет предложение процесса по идентификатору.
func (p *Process) Bid(bidId string) (Bid, bool) {
	for _, bid := range p.Bids {
		if bid.ID == bidId {
			return bid, true
		}
	}
	return Bid{}, false
}

// SelectedBid возвращает выбранное предложение, если оно есть.
func (p *Process) SelectedBid() (Bid, bool) {
	if p.SelectedBidID == "" {
		return Bid{}, false
	}
	return p.Bid(p.SelectedBidID)
}

// Item ищет позицию процесса по идентификатору.
func (p *Process) Item(itemId string) (Item, bool) {
	for _, item := range p.Items {
		if item.ID == itemId {
			return item, true
		}
	}
	return Item{}, false
}

// Savings возвращает экономию относительно оценочной стоимости и её долю.
func (p *Process) Savings() (decimal.Decimal, decimal.Decimal, bool) {
	bid, ok := p.SelectedBid()
	if !ok || !p.EstimatedValue.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	saved := p.EstimatedValue.Sub(bid.Value)
	return saved, saved.Div(p.EstimatedValue), true
}

// Clone возвращает копию процесса, не разделяющую срезы с оригиналом.
func (p Process) Clone() Process {
	p.Items = append([]Item(nil), p.Items...)
	p.Documents = append([]Document(nil), p.Documents...)
	p.Bids = append([]Bid(nil), p.Bids...)
	return p
}

// ProcessRequest представляет структуру запроса для открытия процесса.
type ProcessRequest struct {
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description" validate:"required"`
	Modality       Modality        `json:"modality" validate:"required"`
	OpenDate       time.Time       `json:"openDate" validate:"required"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
}

// ItemRequest представляет структуру запроса для добавления позиции.
type ItemRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	Unit        Unit            `json:"unit" validate:"required"`
}

// DocumentRequest представляет структуру запроса для добавления документа.
type DocumentRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}
