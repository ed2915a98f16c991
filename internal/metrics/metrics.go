package metrics

import (
	"errors"
	"strings"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder считает выполненные и отклонённые операции ядра.
type Recorder struct {
	operations *prometheus.CounterVec
	payments   prometheus.Counter
}

// NewRecorder регистрирует метрики в указанном реестре.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procurement_operations_total",
		Help: "Procurement operations by name and outcome.",
	}, []string{"operation", "outcome"})
	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "procurement_paid_amount_total",
		Help: "Sum of recorded contract payments.",
	})
	reg.MustRegister(operations, payments)
	return &Recorder{
		operations: operations,
		payments:   payments,
	}
}

// Observe учитывает результат операции; для доменных ошибок исходом служит их вид.
func (r *Recorder) Observe(operation string, err error) {
	if r == nil || r.operations == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome(err)).Inc()
}

// AddPaid увеличивает сумму зарегистрированных оплат.
func (r *Recorder) AddPaid(amount float64) {
	if r == nil || r.payments == nil {
		return
	}
	r.payments.Add(amount)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var domainErr *models.ErrorResponse
	if errors.As(err, &domainErr) && domainErr.Kind != "" {
		return strings.ToLower(string(domainErr.Kind))
	}
	return "error"
}
