// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/useraccount/internal/platform/apperr"
	"github.com/taibuivan/useraccount/internal/platform/respond"
	"github.com/taibuivan/useraccount/pkg/pagination"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respond.Error(rec, req, fmt.Errorf("auth_service_verify: %w", apperr.OtpExpired()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, apperr.CodeOtpExpired, decode(t, rec)["code"])
}

func TestError_HidesUnknownCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respond.Error(rec, req, errors.New("pq: password authentication failed for user app"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
	assert.Equal(t, apperr.CodeInternal, decode(t, rec)["code"])
}

func TestError_RetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respond.Error(rec, req, apperr.RateLimited(42))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()

	respond.Paginated(rec, []string{"a"}, pagination.NewMeta(2, 10, 11))

	body := decode(t, rec)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["total_pages"])
	assert.Equal(t, []any{"a"}, body["data"])
}
