package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/albapepper/gagwatch/internal/api/respond"
	"github.com/albapepper/gagwatch/internal/cache"
	"github.com/albapepper/gagwatch/internal/notifications"
)

// GetStock returns the current shop stock as a rendered message.
// @Summary Current stock
// @Description Fetches stock and restock countdowns and returns the rendered message. Never mentions the watch-list.
// @Tags query
// @Produce json
// @Success 200 {object} notifications.Message
// @Success 304 {string} string "Not Modified"
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/stock [get]
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	h.serveQuery(w, r, cache.KeyStock, "stock", h.query.Stock)
}

// GetWeather returns the active weather events as a rendered message.
// @Summary Active weather and events
// @Description Fetches the weather feed and returns the rendered message of active events.
// @Tags query
// @Produce json
// @Success 200 {object} notifications.Message
// @Success 304 {string} string "Not Modified"
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/weather [get]
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	h.serveQuery(w, r, cache.KeyWeather, "weather", h.query.Weather)
}

func (h *Handler) serveQuery(
	w http.ResponseWriter,
	r *http.Request,
	key, what string,
	load func(context.Context) (notifications.Message, error),
) {
	ttl := h.cache.TTL()

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteMessage(w, data, etag, ttl, true)
		return
	}

	msg, err := load(r.Context())
	if err != nil {
		respond.WriteQueryFailure(w, msg.Title, err)
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode "+what)
		return
	}
	etag := h.cache.Set(key, data)
	respond.WriteMessage(w, data, etag, ttl, false)
}
