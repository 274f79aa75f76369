package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/service"
	"github.com/foliotrack/backend/internal/storage"
	"github.com/foliotrack/backend/internal/storage/memory"
)

type mapBlobStore struct {
	blobs map[string]json.RawMessage
}

func (m *mapBlobStore) Get(ctx context.Context, key string, dest any) error {
	raw, ok := m.blobs[key]
	if !ok {
		return fmt.Errorf("%w: blob %s", storage.ErrNotFound, key)
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapBlobStore) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.blobs[key] = raw
	return nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store := memory.NewStore(nil)
	portfolio := repository.NewPortfolioStorage(store)
	handler := NewHandler(
		service.NewPortfolioService(portfolio),
		service.NewAlertsService(repository.NewAlertsStorage(store)),
		service.NewAccountService(repository.NewAccountStorage(store, nil)),
		&mapBlobStore{blobs: make(map[string]json.RawMessage)},
		store,
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_MissingOwnerHeaderIsRejected(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/stocks", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "X-Owner-ID")
}

func TestHandler_BuyAndListStocks(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/stocks/buy", "u1",
		`{"ticker":"AMD","shares":"10","price":"2.10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, mux, http.MethodGet, "/api/stocks", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stocks []struct {
		Ticker      string `json:"Ticker"`
		SharesOwned string `json:"SharesOwned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stocks))
	require.Len(t, stocks, 1)
	assert.Equal(t, "AMD", stocks[0].Ticker)
	assert.Equal(t, "10", stocks[0].SharesOwned)
}

func TestHandler_SellUnknownStockIs404(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/stocks/sell", "u1",
		`{"ticker":"AMD","shares":"1","price":"3"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_OversellIs400(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/stocks/buy", "u1",
		`{"ticker":"AMD","shares":"10","price":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/stocks/sell", "u1",
		`{"ticker":"AMD","shares":"11","price":"3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only 10 owned")
}

func TestHandler_OptionLifecycleOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/options/open", "u1",
		`{"ticker":"AMD","option_type":"call","position":"sell","strike":"100","premium":"2.50","contracts":1,"expiration":"2024-04-19T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var opened struct {
		ID string `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.ID)

	rec = doJSON(t, mux, http.MethodPost, "/api/options/"+opened.ID+"/close", "u1",
		`{"premium":"0.50"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var closed struct {
		Status string `json:"Status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &closed))
	assert.Equal(t, "closed", closed.Status)
}

func TestHandler_CloseUnknownOptionIs404(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/options/nope/close", "u1", `{"premium":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_AlertCreateAndClear(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/alerts", "u1",
		`{"ticker":"AMD","threshold":"100","direction":"above"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, mux, http.MethodDelete, "/api/alerts/"+created.ID, "u1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/alerts", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHandler_AccountLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/account", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/account", "u1", `{"email":"me@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/account/email", "u1", `{"email":"new@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/api/account", "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/account", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SummaryMissingIs404(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/portfolio/summary", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Healthz(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestEnableCORS_PreflightShortCircuits(t *testing.T) {
	mux := newTestMux(t)
	wrapped := EnableCORS(mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/stocks", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Owner-ID")
}
