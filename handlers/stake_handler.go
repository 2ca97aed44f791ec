package handlers

import (
	"net/http"

	"github.com/campusarena/arena-system/middleware"
	"github.com/campusarena/arena-system/services"
)

type StakeHandler struct {
	stakeService services.StakeService
}

func NewStakeHandler(ss services.StakeService) *StakeHandler {
	return &StakeHandler{stakeService: ss}
}

func (h *StakeHandler) PlaceStake(w http.ResponseWriter, r *http.Request) {
	var input services.PlaceStakeInput
	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	result, err := h.stakeService.PlaceStake(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusCreated, result, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StakeHandler) ListMyStakes(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	stakes, err := h.stakeService.ListByUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"stakes": stakes,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
