package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/backend/internal/projection"
	"github.com/foliotrack/backend/internal/service"
	"github.com/foliotrack/backend/internal/storage"
)

// Handler handles HTTP requests for the application. Authentication is an
// upstream concern; the owner id arrives in the X-Owner-ID header.
type Handler struct {
	portfolioSvc *service.PortfolioService
	alertsSvc    *service.AlertsService
	accountSvc   *service.AccountService
	blobs        storage.BlobStore
	store        storage.AggregateStore
}

func NewHandler(portfolioSvc *service.PortfolioService, alertsSvc *service.AlertsService, accountSvc *service.AccountService, blobs storage.BlobStore, store storage.AggregateStore) *Handler {
	return &Handler{
		portfolioSvc: portfolioSvc,
		alertsSvc:    alertsSvc,
		accountSvc:   accountSvc,
		blobs:        blobs,
		store:        store,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stocks", h.handleGetStocks)
	mux.HandleFunc("POST /api/stocks/buy", h.handleBuyStock)
	mux.HandleFunc("POST /api/stocks/sell", h.handleSellStock)
	mux.HandleFunc("DELETE /api/stocks/{ticker}", h.handleDeleteStock)

	mux.HandleFunc("GET /api/options", h.handleGetOptions)
	mux.HandleFunc("POST /api/options/open", h.handleOpenOption)
	mux.HandleFunc("POST /api/options/{id}/close", h.handleCloseOption)
	mux.HandleFunc("POST /api/options/{id}/expire", h.handleExpireOption)
	mux.HandleFunc("POST /api/options/{id}/assign", h.handleAssignOption)
	mux.HandleFunc("DELETE /api/options/{id}", h.handleDeleteOption)

	mux.HandleFunc("GET /api/crypto", h.handleGetCryptos)
	mux.HandleFunc("POST /api/crypto/buy", h.handleBuyCrypto)
	mux.HandleFunc("POST /api/crypto/sell", h.handleSellCrypto)
	mux.HandleFunc("DELETE /api/crypto/{token}", h.handleDeleteCrypto)

	mux.HandleFunc("GET /api/alerts", h.handleGetAlerts)
	mux.HandleFunc("POST /api/alerts", h.handleCreateAlert)
	mux.HandleFunc("POST /api/alerts/{id}/clear", h.handleClearAlert)
	mux.HandleFunc("DELETE /api/alerts/{id}", h.handleDeleteAlert)

	mux.HandleFunc("POST /api/account", h.handleCreateAccount)
	mux.HandleFunc("GET /api/account", h.handleGetAccount)
	mux.HandleFunc("PUT /api/account/email", h.handleChangeEmail)
	mux.HandleFunc("GET /api/account/logins", h.handleRecentLogins)
	mux.HandleFunc("DELETE /api/account", h.handleDeleteAccount)

	mux.HandleFunc("GET /api/portfolio/summary", h.handleGetSummary)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get("X-Owner-ID")
	if owner == "" {
		http.Error(w, "missing X-Owner-ID header", http.StatusBadRequest)
		return "", false
	}
	return owner, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrVersionConflict):
		http.Error(w, "conflicting update, try again", http.StatusConflict)
	case errors.Is(err, storage.ErrBackendUnavailable):
		slog.Error("Storage backend unavailable", "err", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("Request failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// --- Stocks ---

type tradeStockRequest struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Date   time.Time       `json:"date,omitzero"`
	Notes  string          `json:"notes"`
}

func (h *Handler) handleGetStocks(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	stocks, err := h.portfolioSvc.GetStocks(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stocks)
}

func (h *Handler) handleBuyStock(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req tradeStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pos, err := h.portfolioSvc.BuyStock(r.Context(), owner, req.Ticker, req.Shares, req.Price, req.Date, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

func (h *Handler) handleSellStock(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req tradeStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pos, err := h.portfolioSvc.SellStock(r.Context(), owner, req.Ticker, req.Shares, req.Price, req.Date, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (h *Handler) handleDeleteStock(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.portfolioSvc.DeleteStock(r.Context(), owner, r.PathValue("ticker")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Options ---

type openOptionRequest struct {
	Ticker     string          `json:"ticker"`
	OptionType string          `json:"option_type"`
	Position   string          `json:"position"`
	Strike     decimal.Decimal `json:"strike"`
	Premium    decimal.Decimal `json:"premium"`
	Contracts  int             `json:"contracts"`
	Expiration time.Time       `json:"expiration"`
	Date       time.Time       `json:"date,omitzero"`
}

func (h *Handler) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	options, err := h.portfolioSvc.GetOptions(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) handleOpenOption(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req openOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	o, err := h.portfolioSvc.OpenOption(r.Context(), owner, req.Ticker, req.OptionType, req.Position, req.Strike, req.Premium, req.Contracts, req.Expiration, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type closeOptionRequest struct {
	Premium decimal.Decimal `json:"premium"`
	Date    time.Time       `json:"date,omitzero"`
}

func (h *Handler) handleCloseOption(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req closeOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	o, err := h.portfolioSvc.CloseOption(r.Context(), owner, r.PathValue("id"), req.Premium, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleExpireOption(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	o, err := h.portfolioSvc.ExpireOption(r.Context(), owner, r.PathValue("id"), time.Time{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleAssignOption(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	o, err := h.portfolioSvc.AssignOption(r.Context(), owner, r.PathValue("id"), time.Time{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.portfolioSvc.DeleteOption(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Crypto ---

type tradeCryptoRequest struct {
	Token        string          `json:"token"`
	Quantity     decimal.Decimal `json:"quantity"`
	DollarAmount decimal.Decimal `json:"dollar_amount"`
	Date         time.Time       `json:"date,omitzero"`
}

func (h *Handler) handleGetCryptos(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	cryptos, err := h.portfolioSvc.GetCryptos(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cryptos)
}

func (h *Handler) handleBuyCrypto(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req tradeCryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.portfolioSvc.BuyCrypto(r.Context(), owner, req.Token, req.Quantity, req.DollarAmount, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleSellCrypto(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req tradeCryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, err := h.portfolioSvc.SellCrypto(r.Context(), owner, req.Token, req.Quantity, req.DollarAmount, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCrypto(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.portfolioSvc.DeleteCrypto(r.Context(), owner, r.PathValue("token")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Alerts ---

type createAlertRequest struct {
	Ticker    string          `json:"ticker"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction string          `json:"direction"`
}

func (h *Handler) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	alerts, err := h.alertsSvc.GetAlerts(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.alertsSvc.CreateAlert(r.Context(), owner, req.Ticker, req.Threshold, req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleClearAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	a, err := h.alertsSvc.ClearAlert(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.alertsSvc.DeleteAlert(r.Context(), owner, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Account ---

type createAccountRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.accountSvc.CreateAccount(r.Context(), owner, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	a, err := h.accountSvc.GetAccount(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a, err := h.accountSvc.ChangeEmail(r.Context(), owner, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleRecentLogins(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	logins, err := h.accountSvc.RecentLogins(r.Context(), owner, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logins)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.accountSvc.DeleteAccount(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Read side ---

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var summary projection.PortfolioSummary
	if err := h.blobs.Get(r.Context(), projection.SummaryKey(owner), &summary); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EnableCORS is a middleware to allow the web frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Owner-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
