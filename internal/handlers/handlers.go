package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/senyabanana/procurement-service/internal/logger"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// respondError отправляет доменную ошибку как есть, остальные ошибки - как 500 с сообщением fallback.
func respondError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		if errorResponse.StatusCode >= http.StatusInternalServerError {
			logg.Error(ctx, fallback, err)
		} else {
			logg.Warn(ctx, "request rejected", err)
		}
		utils.SendError(w, errorResponse)
		return
	}
	logg.Error(ctx, fallback, err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

// actorFromRequest находит участника по параметру actorId и добавляет его в контекст логгера.
func actorFromRequest(ctx context.Context, logg *logger.Logger, actors repository.ActorRegistry, r *http.Request) (context.Context, *models.Actor, error) {
	actor, err := utils.ResolveActor(ctx, actors, r.URL.Query().Get("actorId"))
	if err != nil {
		return ctx, nil, err
	}
	return logg.WithActor(ctx, actor.ID, string(actor.Role)), actor, nil
}
