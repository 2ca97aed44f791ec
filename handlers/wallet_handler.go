package handlers

import (
	"net/http"

	"github.com/campusarena/arena-system/middleware"
	"github.com/campusarena/arena-system/services"
)

type WalletHandler struct {
	ledgerService services.LedgerService
}

func NewWalletHandler(ls services.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerService: ls}
}

func (h *WalletHandler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	transactions, err := h.ledgerService.History(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"transactions": transactions,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdjustPoints - ручная корректировка баланса администратором.
func (h *WalletHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID int    `json:"user_id"`
		Delta  int    `json:"delta"`
		Note   string `json:"note"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	balance, err := h.ledgerService.AdminAdjust(r.Context(), input.UserID, input.Delta, input.Note)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"user_id": input.UserID,
		"points":  balance,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
