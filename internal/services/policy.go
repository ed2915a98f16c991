package services

import (
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// stagePermissions - роли, которым разрешён переход на этап.
// Этапы, отсутствующие в таблице (включая CANCELLED), недоступны никому.
var stagePermissions = map[models.Stage][]models.Role{
	models.TorDrafting:       {models.Manager},
	models.PriceResearch:     {models.Manager},
	models.NoticeDrafting:    {models.Manager},
	models.NoticePublished:   {models.Manager},
	models.BidsReceived:      {models.Manager},
	models.BidsAnalyzed:      {models.Manager},
	models.Awarded:           {models.ExpenditureAuthorizer},
	models.Contracting:       {models.ExpenditureAuthorizer},
	models.ContractExecution: {models.ContractInspector},
	models.Completed:         {models.Manager, models.ExpenditureAuthorizer},
}

var (
	openProcessRoles    = []models.Role{models.Manager, models.ExpenditureAuthorizer}
	selectBidRoles      = []models.Role{models.Manager, models.ExpenditureAuthorizer}
	createContractRoles = []models.Role{models.ContractInspector}
	ledgerRoles         = []models.Role{models.ExpenditureAuthorizer}
)

// CanTransition сообщает, может ли роль перевести процесс на этап.
func CanTransition(role models.Role, target models.Stage) bool {
	return utils.ContainsRole(stagePermissions[target], role)
}

// PermittedRoles возвращает роли, которым разрешён переход на этап.
func PermittedRoles(target models.Stage) []models.Role {
	return append([]models.Role(nil), stagePermissions[target]...)
}
