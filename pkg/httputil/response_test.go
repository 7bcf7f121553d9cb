package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]int{"count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, errors.New("bad payload"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad payload"}`, rec.Body.String())
}

func TestWriteNotFoundError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFoundError(rec, "no such key")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no such key"}`, rec.Body.String())
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteRawJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRawJSON(rec, http.StatusOK, []byte(`{"isOpen":true}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isOpen":true}`, rec.Body.String())
}
