package respond_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedforward/feedforward/pkg/respond"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("success carries data", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		respond.Success(rec, http.StatusCreated, "created", map[string]string{"id": "1"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "created", body["message"])
		assert.Equal(t, map[string]any{"id": "1"}, body["data"])
	})

	t.Run("failure shares the same shape", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		respond.Fail(rec, http.StatusBadRequest, "invalid credentials")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid credentials", body["message"])
		assert.NotContains(t, body, "data")
	})

	t.Run("not found handler", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		respond.NotFoundHandler()(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, false, decode(t, rec)["success"])
	})
}
