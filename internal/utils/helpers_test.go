package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = ParseLimitOffset("50", "7")
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 7, offset)

	for _, tc := range [][2]string{{"0", ""}, {"51", ""}, {"x", ""}, {"", "-1"}, {"", "y"}} {
		_, _, err := ParseLimitOffset(tc[0], tc[1])
		assert.Error(t, err, "limit=%q offset=%q", tc[0], tc[1])
	}
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Laptop","quantity":2,"unit":"UNIT","unitPrice":"10.50"}`))
	var item models.ItemRequest
	require.Nil(t, DecodeJSONBody(req, &item))
	assert.Equal(t, "Laptop", item.Name)
	assert.Equal(t, "10.5", item.UnitPrice.String())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Laptop","quantity":0,"unit":"UNIT"}`))
	errorResponse := DecodeJSONBody(req, &models.ItemRequest{})
	require.NotNil(t, errorResponse)
	assert.True(t, errors.Is(errorResponse, models.ErrValidation))
	assert.Contains(t, errorResponse.Message, "quantity must be at least 1")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Laptop","weight":3}`))
	errorResponse = DecodeJSONBody(req, &models.ItemRequest{})
	require.NotNil(t, errorResponse)
	assert.Equal(t, http.StatusBadRequest, errorResponse.StatusCode)
}

func TestResolveActor(t *testing.T) {
	store := repository.NewMemoryStore(models.Actor{ID: "m1", Role: models.Manager})
	ctx := context.Background()

	actor, err := ResolveActor(ctx, store, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.Manager, actor.Role)

	_, err = ResolveActor(ctx, store, "")
	var errorResponse *models.ErrorResponse
	require.ErrorAs(t, err, &errorResponse)
	assert.Equal(t, http.StatusBadRequest, errorResponse.StatusCode)

	_, err = ResolveActor(ctx, store, "nobody")
	require.ErrorAs(t, err, &errorResponse)
	assert.Equal(t, http.StatusUnauthorized, errorResponse.StatusCode)
}

func TestSendError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, models.NewDomainError(models.KindPaymentExceedsValue, "over the contract value"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"kind":"PaymentExceedsValue","reason":"over the contract value"}`, rec.Body.String())
}

func TestContainsRole(t *testing.T) {
	allowed := []models.Role{models.Manager, models.ExpenditureAuthorizer}
	assert.True(t, ContainsRole(allowed, models.ExpenditureAuthorizer))
	assert.False(t, ContainsRole(allowed, models.ContractInspector))
	assert.False(t, ContainsRole(nil, models.Manager))
}
