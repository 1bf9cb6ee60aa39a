package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Invalid("quantity", "must be positive"), http.StatusBadRequest, "validation"},
		{apperr.Missing("order o1 not found"), http.StatusNotFound, "not_found"},
		{apperr.Conflicting("invoice already created"), http.StatusConflict, "conflict"},
		{apperr.TransportFailure(errors.New("eof"), "catalog"), http.StatusBadGateway, "transport"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)

		assert.Equal(t, tc.status, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Error)
	}
}

func TestWriteErrorIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Invalid("discountPct", "out of range"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "discountPct", body.Field)
}

func TestDecodeRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var v map[string]any
	err := Decode(req, &v)
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Equal(t, "body", apperr.FieldOf(err))
}
