package models

// Role - роль участника процесса закупки.
type Role string

const (
	Manager               Role = "MANAGER"                // Управляет процессом закупки
	ContractInspector     Role = "CONTRACT_INSPECTOR"     // Контролирует исполнение контракта
	ExpenditureAuthorizer Role = "EXPENDITURE_AUTHORIZER" // Санкционирует расходы
	Administrator         Role = "ADMINISTRATOR"          // Администратор системы
)

// IsValid проверяет, что роль известна системе.
func (r Role) IsValid() bool {
	switch r {
	case Manager, ContractInspector, ExpenditureAuthorizer, Administrator:
		return true
	}
	return false
}

// Actor представляет участника, выполняющего операцию.
// Реестр участников внешний: ядро только читает пару (ID, Role).
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Supplier представляет поставщика, на которого ссылаются предложения и контракты.
type Supplier struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}
