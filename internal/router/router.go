package router

import (
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitRoutes регистрирует маршруты API. gatherer может быть nil, тогда /metrics не публикуется.
func InitRoutes(processHandler *handlers.ProcessHandler, contractHandler *handlers.ContractHandler, logg *logger.Logger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		requestLogger(logg),
		middleware.Recoverer,
	)

	r.Get("/api/ping", handlers.PingHandler)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/processes", func(r chi.Router) {
		r.Get("/", processHandler.GetProcesses)
		r.Post("/new", processHandler.CreateProcess)
		r.Route("/{processId}", func(r chi.Router) {
			r.Get("/", processHandler.GetProcess)
			r.Post("/items", processHandler.AddItem)
			r.Post("/documents", processHandler.AddDocument)
			r.Post("/bids", processHandler.RegisterBid)
			r.Put("/stage", processHandler.UpdateStage)
			r.Put("/award", processHandler.SelectWinningBid)
			r.Post("/contract", processHandler.CreateContract)
			r.Get("/audit", processHandler.GetAudit)
		})
	})

	r.Route("/api/contracts/{contractId}", func(r chi.Router) {
		r.Get("/", contractHandler.GetContract)
		r.Get("/summary", contractHandler.GetSummary)
		r.Post("/commitments", contractHandler.RecordCommitment)
		r.Post("/deliveries", contractHandler.RecordDelivery)
		r.Post("/payments", contractHandler.RecordPayment)
		r.Get("/audit", contractHandler.GetAudit)
	})

	return r
}

// requestLogger добавляет request_id в контекст логгера и пишет итог запроса.
func requestLogger(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ctx = logg.WithField(ctx, "method", r.Method)
			ctx = logg.WithField(ctx, "path", r.URL.Path)
			ctx = logg.WithField(ctx, "status", status)
			ctx = logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
			logg.Info(ctx, "request.complete")
		})
	}
}
