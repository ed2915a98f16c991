package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commitment представляет бюджетное обязательство по контракту.
type Commitment struct {
	ID           string          `json:"id"`
	ContractID   string          `json:"contractId"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	AuthorizerID string          `json:"authorizerId"`
}

// DeliveredItem - количество поставленной позиции.
type DeliveredItem struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity"`
}

// Delivery представляет поставку по контракту.
type Delivery struct {
	ID            string          `json:"id"`
	ContractID    string          `json:"contractId"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	ResponsibleID string          `json:"responsibleId"`
	Items         []DeliveredItem `json:"items"`
}

// Payment представляет оплату по контракту.
type Payment struct {
	ID           string          `json:"id"`
	ContractID   string          `json:"contractId"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	AuthorizerID string          `json:"authorizerId"`
}

// Contract представляет модель контракта с тремя журналами: обязательства, поставки и оплаты.
// Стоимость контракта фиксируется при создании и больше не меняется.
type Contract struct {
	ID          string          `json:"id"`
	ProcessID   string          `json:"processId"`
	Supplier    Supplier        `json:"supplier"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	Value       decimal.Decimal `json:"value"`
	InspectorID string          `json:"inspectorId"`
	Commitments []Commitment    `json:"commitments"`
	Deliveries  []Delivery      `json:"deliveries"`
	Payments    []Payment       `json:"payments"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TotalPaid возвращает сумму всех оплат.
func (c *Contract) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range c.Payments {
		total = total.Add(payment.Amount)
	}
	return total
}

// TotalCommitted возвращает сумму всех обязательств.
func (c *Contract) TotalCommitted() decimal.Decimal {
	total := decimal.Zero
	for _, commitment := range c.Commitments {
		total = total.Add(commitment.Amount)
	}
	return total
}

// Balance возвращает остаток: стоимость контракта минус оплаченное.
func (c *Contract) Balance() decimal.Decimal {
	return c.Value.Sub(c.TotalPaid())
}

// PaidFraction возвращает долю оплаченного от стоимости контракта.
func (c *Contract) PaidFraction() decimal.Decimal {
	if c.Value.IsZero() {
		return decimal.Zero
	}
	return c.TotalPaid().Div(c.Value)
}

// DeliveredQuantity возвращает суммарное поставленное количество позиции.
func (c *Contract) DeliveredQuantity(itemId string) int {
	total := 0
	for _, delivery := range c.Deliveries {
		for _, item := range delivery.Items {
			if item.ItemID == itemId {
				total += item.Quantity
			}
		}
	}
	return total
}

// HasCommitment проверяет, зарегистрировано ли обязательство с таким номером.
func (c *Contract) HasCommitment(commitmentId string) bool {
	for _, commitment := range c.Commitments {
		if commitment.ID == commitmentId {
			return true
		}
	}
	return false
}

// HasPayment проверяет, зарегистрирована ли оплата с таким номером.
func (c *Contract) HasPayment(paymentId string) bool {
	for _, payment := range c.Payments {
		if payment.ID == paymentId {
			return true
		}
	}
	return false
}

// Clone возвращает копию контракта, не разделяющую журналы с оригиналом.
func (c Contract) Clone() Contract {
	c.Commitments = append([]Commitment(nil), c.Commitments...)
	c.Payments = append([]Payment(nil), c.Payments...)
	deliveries := make([]Delivery, len(c.Deliveries))
	for i, delivery := range c.Deliveries {
		delivery.Items = append([]DeliveredItem(nil), delivery.Items...)
		deliveries[i] = delivery
	}
	c.Deliveries = deliveries
	return c
}

// ContractSummary - сводка финансового состояния контракта.
type ContractSummary struct {
	ContractID     string          `json:"contractId"`
	Value          decimal.Decimal `json:"value"`
	TotalCommitted decimal.Decimal `json:"totalCommitted"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	Balance        decimal.Decimal `json:"balance"`
	PaidFraction   decimal.Decimal `json:"paidFraction"`
	Delivered      map[string]int  `json:"delivered"`
}

// ContractRequest представляет структуру запроса для создания контракта.
type ContractRequest struct {
	ContractID string          `json:"contractId" validate:"required"`
	StartDate  time.Time       `json:"startDate" validate:"required"`
	EndDate    time.Time       `json:"endDate" validate:"required"`
	Value      decimal.Decimal `json:"value"`
}

// CommitmentRequest представляет структуру запроса для регистрации обязательства.
type CommitmentRequest struct {
	ID     string          `json:"id" validate:"required"`
	Date   time.Time       `json:"date" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// DeliveryRequest представляет структуру запроса для регистрации поставки.
type DeliveryRequest struct {
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Items       []DeliveredItem `json:"items" validate:"min=1,dive"`
}

// PaymentRequest представляет структуру запроса для регистрации оплаты.
type PaymentRequest struct {
	ID          string          `json:"id" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}
