package models

import "net/http"

// ErrorKind - вид доменной ошибки.
type ErrorKind string

const (
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInvalidStage        ErrorKind = "InvalidStage"
	KindInvalidBid          ErrorKind = "InvalidBid"
	KindNoAward             ErrorKind = "NoAward"
	KindAlreadyAwarded      ErrorKind = "AlreadyAwarded"
	KindValidation          ErrorKind = "ValidationError"
	KindPaymentExceedsValue ErrorKind = "PaymentExceedsValue" // частный случай ValidationError
	KindNotFound            ErrorKind = "NotFound"
)

var statusByKind = map[ErrorKind]int{
	KindUnauthorized:        http.StatusForbidden,
	KindInvalidStage:        http.StatusConflict,
	KindInvalidBid:          http.StatusBadRequest,
	KindNoAward:             http.StatusBadRequest,
	KindAlreadyAwarded:      http.StatusConflict,
	KindValidation:          http.StatusBadRequest,
	KindPaymentExceedsValue: http.StatusUnprocessableEntity,
	KindNotFound:            http.StatusNotFound,
}

// Эталонные ошибки для сравнения через errors.Is.
var (
	ErrUnauthorized        = &ErrorResponse{Kind: KindUnauthorized}
	ErrInvalidStage        = &ErrorResponse{Kind: KindInvalidStage}
	ErrInvalidBid          = &ErrorResponse{Kind: KindInvalidBid}
	ErrNoAward             = &ErrorResponse{Kind: KindNoAward}
	ErrAlreadyAwarded      = &ErrorResponse{Kind: KindAlreadyAwarded}
	ErrValidation          = &ErrorResponse{Kind: KindValidation}
	ErrPaymentExceedsValue = &ErrorResponse{Kind: KindPaymentExceedsValue}
	ErrNotFound            = &ErrorResponse{Kind: KindNotFound}
)

// ErrorResponse описывает ошибку с кодом, видом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Kind       ErrorKind `json:"kind,omitempty"`
	Message    string    `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// NewDomainError создает доменную ошибку; HTTP-код определяется видом ошибки.
func NewDomainError(kind ErrorKind, message string) *ErrorResponse {
	statusCode, ok := statusByKind[kind]
	if !ok {
		statusCode = http.StatusInternalServerError
	}
	return &ErrorResponse{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
	}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return string(e.Kind) + ": " + e.Message
}

// Is сравнивает ошибки по виду. ErrValidation совпадает и с PaymentExceedsValue.
func (e *ErrorResponse) Is(target error) bool {
	t, ok := target.(*ErrorResponse)
	if !ok || t.Kind == "" {
		return false
	}
	if t.Kind == KindValidation && e.Kind == KindPaymentExceedsValue {
		return true
	}
	return e.Kind == t.Kind
}
