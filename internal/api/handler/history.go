package handler

import (
	"net/http"
	"strconv"

	"github.com/albapepper/gagwatch/internal/api/respond"
	"github.com/albapepper/gagwatch/internal/notifications"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// GetHistory returns the most recent delivery attempts.
// @Summary Delivery history
// @Description Returns recorded notification deliveries, newest first. Empty when no database is configured.
// @Tags history
// @Produce json
// @Param limit query int false "Maximum rows (1-200)" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/history [get]
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	deliveries := []notifications.Delivery{}
	if h.history != nil {
		rows, err := h.history.Recent(r.Context(), limit)
		if err != nil {
			respond.WriteErrorDetail(w, http.StatusInternalServerError, "HISTORY_UNAVAILABLE", "Failed to read delivery history", err.Error())
			return
		}
		if rows != nil {
			deliveries = rows
		}
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"count":      len(deliveries),
		"deliveries": deliveries,
	})
}
