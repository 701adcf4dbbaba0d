// src/handlers/ledger_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
	"github.com/username/folioledger/src/security/validation"
	"github.com/username/folioledger/src/services"
	"github.com/username/folioledger/src/utils"
)

// LedgerHandler exposes the aggregated transaction ledger: the merged,
// newest-first view across every portfolio the user can read, plus the
// filtered and summarized projections over it.
type LedgerHandler struct {
	ledgerService services.LedgerService
}

func NewLedgerHandler(ledgerService services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

type ledgerResponse struct {
	Status       services.LedgerStatus `json:"status"`
	RefreshedAt  time.Time             `json:"refreshed_at"`
	Transactions []models.Transaction  `json:"transactions"`
	Failures     []models.FetchFailure `json:"failures"`
	Error        string                `json:"error,omitempty"`
}

type summaryResponse struct {
	Status      services.LedgerStatus `json:"status"`
	RefreshedAt time.Time             `json:"refreshed_at"`
	Summary     models.Summary        `json:"summary"`
}

// parseCriteria maps the recognized query parameters onto a FilterCriteria.
// Absent parameters stay all-permissive.
func parseCriteria(r *http.Request) (services.FilterCriteria, error) {
	q := r.URL.Query()
	criteria := services.FilterCriteria{}

	search := validation.SanitizeText(strings.TrimSpace(q.Get("search")))
	if err := validation.ValidateStringMaxLength(search, validation.MaxSearchTextLength, "search"); err != nil {
		return criteria, err
	}
	criteria.SearchText = search

	switch kind := strings.ToUpper(strings.TrimSpace(q.Get("kind"))); kind {
	case "", "ALL":
		// all kinds
	case string(models.KindTrade), string(models.KindCashFlow), string(models.KindFundUnit):
		criteria.Kind = models.TransactionKind(kind)
	default:
		return criteria, errors.New("unknown transaction kind: " + kind)
	}

	if portfolio := strings.TrimSpace(q.Get("portfolio")); portfolio != "" && !strings.EqualFold(portfolio, "all") {
		criteria.PortfolioID = portfolio
	}

	window, err := services.ParseDateWindow(q.Get("window"))
	if err != nil {
		return criteria, err
	}
	criteria.Window = window

	return criteria, nil
}

func (h *LedgerHandler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	criteria, err := parseCriteria(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.ledgerService.Ledger(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Ledger aggregation failed", "error", err)
		utils.SendJSON(w, ledgerResponse{
			Status:      snap.Status,
			RefreshedAt: snap.RefreshedAt,
			Failures:    snap.Failures,
			Error:       snap.Error,
		}, http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, ledgerResponse{
		Status:       snap.Status,
		RefreshedAt:  snap.RefreshedAt,
		Transactions: services.FilterTransactions(snap.Transactions, criteria),
		Failures:     snap.Failures,
	}, http.StatusOK)
}

func (h *LedgerHandler) HandleGetLedgerSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	criteria, err := parseCriteria(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.ledgerService.Ledger(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Ledger aggregation failed", "error", err)
		utils.SendJSONError(w, "could not load transactions", http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, summaryResponse{
		Status:      snap.Status,
		RefreshedAt: snap.RefreshedAt,
		Summary:     services.Summarize(services.FilterTransactions(snap.Transactions, criteria)),
	}, http.StatusOK)
}

// HandleRefreshLedger forces a fresh aggregation pass, superseding any pass
// still in flight for this user.
func (h *LedgerHandler) HandleRefreshLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	snap, err := h.ledgerService.Refresh(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Ledger refresh failed", "error", err)
		utils.SendJSON(w, ledgerResponse{
			Status:      snap.Status,
			RefreshedAt: snap.RefreshedAt,
			Failures:    snap.Failures,
			Error:       snap.Error,
		}, http.StatusBadGateway)
		return
	}

	utils.SendJSON(w, ledgerResponse{
		Status:       snap.Status,
		RefreshedAt:  snap.RefreshedAt,
		Transactions: snap.Transactions,
		Failures:     snap.Failures,
	}, http.StatusOK)
}
