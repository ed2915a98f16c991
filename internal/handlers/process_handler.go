package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/go-chi/chi/v5"
)

// ProcessHandler - структура для обработки HTTP-запросов к процессам закупки.
type ProcessHandler struct {
	Processes *services.ProcessService
	Awards    *services.AwardService
	Audit     *services.AuditService
	Actors    repository.ActorRegistry
	Logger    *logger.Logger
	Timeout   time.Duration
}

// NewProcessHandler создаёт новый экземпляр ProcessHandler.
func NewProcessHandler(processes *services.ProcessService, awards *services.AwardService, audit *services.AuditService, actors repository.ActorRegistry, logg *logger.Logger, timeout time.Duration) *ProcessHandler {
	return &ProcessHandler{
		Processes: processes,
		Awards:    awards,
		Audit:     audit,
		Actors:    actors,
		Logger:    logg,
		Timeout:   timeout,
	}
}

// GetProcesses обрабатывает запросы для получения списка процессов.
func (h *ProcessHandler) GetProcesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	stages := r.URL.Query()["stage"]

	processes, err := h.Processes.ListProcesses(ctx, limitStr, offsetStr, stages)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch processes")
		return
	}
	if processes == nil {
		processes = []models.Process{}
	}
	utils.SendJSON(w, http.StatusOK, processes)
}

// CreateProcess обрабатывает запросы для открытия процесса.
func (h *ProcessHandler) CreateProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var processReq models.ProcessRequest
	if errorResponse := utils.DecodeJSONBody(r, &processReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	process, err := h.Processes.OpenProcess(ctx, processReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to open process")
		return
	}
	utils.SendJSON(w, http.StatusOK, process)
}

// GetProcess обрабатывает запросы для получения процесса.
func (h *ProcessHandler) GetProcess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	process, err := h.Processes.GetProcess(ctx, chi.URLParam(r, "processId"))
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch process")
		return
	}
	utils.SendJSON(w, http.StatusOK, process)
}

// AddItem обрабатывает запросы для добавления позиции.
func (h *ProcessHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var itemReq models.ItemRequest
	if errorResponse := utils.DecodeJSONBody(r, &itemReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	item, err := h.Processes.AddItem(ctx, chi.URLParam(r, "processId"), itemReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to add item")
		return
	}
	utils.SendJSON(w, http.StatusOK, item)
}

// AddDocument обрабатывает запросы для добавления документа.
func (h *ProcessHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var docReq models.DocumentRequest
	if errorResponse := utils.DecodeJSONBody(r, &docReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	doc, err := h.Processes.AddDocument(ctx, chi.URLParam(r, "processId"), docReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to add document")
		return
	}
	utils.SendJSON(w, http.StatusOK, doc)
}

// RegisterBid обрабатывает запросы для регистрации предложения поставщика.
func (h *ProcessHandler) RegisterBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if errorResponse := utils.DecodeJSONBody(r, &bidReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	bid, err := h.Processes.RegisterBid(ctx, chi.URLParam(r, "processId"), bidReq)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to register bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// UpdateStage обрабатывает запросы для перевода процесса на этап.
func (h *ProcessHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	stage := models.Stage(r.URL.Query().Get("stage"))
	if !stage.IsValid() {
		utils.SendErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("unsupported stage: %q", stage))
		return
	}

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	process, err := h.Processes.Transition(ctx, chi.URLParam(r, "processId"), stage, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to change stage")
		return
	}
	utils.SendJSON(w, http.StatusOK, process)
}

// SelectWinningBid обрабатывает запросы для выбора победителя.
func (h *ProcessHandler) SelectWinningBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidId := r.URL.Query().Get("bidId")
	if bidId == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "missing required query parameter: bidId")
		return
	}

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	process, err := h.Awards.SelectWinningBid(ctx, chi.URLParam(r, "processId"), bidId, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to select winning bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, process)
}

// CreateContract обрабатывает запросы для заключения контракта.
func (h *ProcessHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var contractReq models.ContractRequest
	if errorResponse := utils.DecodeJSONBody(r, &contractReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	contract, err := h.Awards.CreateContract(ctx, chi.URLParam(r, "processId"), contractReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to create contract")
		return
	}
	utils.SendJSON(w, http.StatusOK, contract)
}

// GetAudit обрабатывает запросы для получения журнала процесса.
func (h *ProcessHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	processId := chi.URLParam(r, "processId")
	if _, err := h.Processes.GetProcess(ctx, processId); err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch process")
		return
	}

	events, err := h.Audit.ListEvents(ctx, processId)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch audit trail")
		return
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	utils.SendJSON(w, http.StatusOK, events)
}
