package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/security/validation"
	"github.com/username/folioledger/src/services"
	"github.com/username/folioledger/src/utils"
)

// PortfolioManagerHandler exposes the accessible-portfolio list the ledger
// aggregation fans out over.
type PortfolioManagerHandler struct {
	identityService services.IdentityService
}

func NewPortfolioManagerHandler(identityService services.IdentityService) *PortfolioManagerHandler {
	return &PortfolioManagerHandler{identityService: identityService}
}

func (h *PortfolioManagerHandler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	portfolios, err := h.identityService.AccessiblePortfolios(r.Context(), userID)
	if err != nil {
		logger.L.Error("Failed to list portfolios", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve portfolios", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, portfolios, http.StatusOK)
}

func (h *PortfolioManagerHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid body", http.StatusBadRequest)
		return
	}

	req.Name = validation.SanitizeText(strings.TrimSpace(req.Name))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	if err := validation.ValidateStringNotEmpty(req.Name, "Portfolio name"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxPortfolioNameLength, "Portfolio name"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateCurrencyCode(req.Currency, "Currency"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	portfolio, err := h.identityService.CreatePortfolio(r.Context(), userID, req.Name, req.Currency, false)
	if err != nil {
		if errors.Is(err, services.ErrPortfolioLimitReached) {
			logger.L.Warn("Portfolio limit reached", "userID", userID)
			utils.SendJSONError(w, "Maximum number of portfolios reached", http.StatusForbidden)
			return
		}
		logger.L.Error("Failed to create portfolio", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to create portfolio (name must be unique)", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, portfolio, http.StatusCreated)
}

func (h *PortfolioManagerHandler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	portfolioID := chi.URLParam(r, "id")
	err := h.identityService.DeletePortfolio(r.Context(), userID, portfolioID)
	if err != nil {
		if errors.Is(err, services.ErrPortfolioNotFound) {
			utils.SendJSONError(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete portfolio", "userID", userID, "portfolioID", portfolioID, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Portfolio deleted"}, http.StatusOK)
}
