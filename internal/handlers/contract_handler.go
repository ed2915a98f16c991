package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/go-chi/chi/v5"
)

// ContractHandler - структура для обработки HTTP-запросов к контрактам.
type ContractHandler struct {
	Ledger  *services.LedgerService
	Audit   *services.AuditService
	Actors  repository.ActorRegistry
	Logger  *logger.Logger
	Timeout time.Duration
}

// NewContractHandler создаёт новый экземпляр ContractHandler.
func NewContractHandler(ledger *services.LedgerService, audit *services.AuditService, actors repository.ActorRegistry, logg *logger.Logger, timeout time.Duration) *ContractHandler {
	return &ContractHandler{
		Ledger:  ledger,
		Audit:   audit,
		Actors:  actors,
		Logger:  logg,
		Timeout: timeout,
	}
}

// GetContract обрабатывает запросы для получения контракта.
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	contract, err := h.Ledger.GetContract(ctx, chi.URLParam(r, "contractId"))
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch contract")
		return
	}
	utils.SendJSON(w, http.StatusOK, contract)
}

// GetSummary обрабатывает запросы для получения финансового состояния контракта.
func (h *ContractHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Ledger.Summary(ctx, chi.URLParam(r, "contractId"))
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch contract summary")
		return
	}
	utils.SendJSON(w, http.StatusOK, summary)
}

// RecordCommitment обрабатывает запросы для регистрации обязательства.
func (h *ContractHandler) RecordCommitment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var commitmentReq models.CommitmentRequest
	if errorResponse := utils.DecodeJSONBody(r, &commitmentReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	commitment, err := h.Ledger.RecordCommitment(ctx, chi.URLParam(r, "contractId"), commitmentReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to record commitment")
		return
	}
	utils.SendJSON(w, http.StatusOK, commitment)
}

// RecordDelivery обрабатывает запросы для регистрации поставки.
func (h *ContractHandler) RecordDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var deliveryReq models.DeliveryRequest
	if errorResponse := utils.DecodeJSONBody(r, &deliveryReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	delivery, err := h.Ledger.RecordDelivery(ctx, chi.URLParam(r, "contractId"), deliveryReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to record delivery")
		return
	}
	utils.SendJSON(w, http.StatusOK, delivery)
}

// RecordPayment обрабатывает запросы для регистрации оплаты.
func (h *ContractHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	ctx, actor, err := actorFromRequest(ctx, h.Logger, h.Actors, r)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to resolve actor")
		return
	}

	var paymentReq models.PaymentRequest
	if errorResponse := utils.DecodeJSONBody(r, &paymentReq); errorResponse != nil {
		respondError(ctx, h.Logger, w, errorResponse, "invalid request body")
		return
	}

	payment, err := h.Ledger.RecordPayment(ctx, chi.URLParam(r, "contractId"), paymentReq, *actor)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to record payment")
		return
	}
	utils.SendJSON(w, http.StatusOK, payment)
}

// GetAudit обрабатывает запросы для получения журнала контракта.
func (h *ContractHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	contractId := chi.URLParam(r, "contractId")
	if _, err := h.Ledger.GetContract(ctx, contractId); err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch contract")
		return
	}

	events, err := h.Audit.ListEvents(ctx, contractId)
	if err != nil {
		respondError(ctx, h.Logger, w, err, "failed to fetch audit trail")
		return
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	utils.SendJSON(w, http.StatusOK, events)
}
