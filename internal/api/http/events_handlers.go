package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-practice/internal/sync"
)

// EventLister reads the audit log; *syncx.EventRepo implements it.
type EventLister interface {
	Since(ctx context.Context, seq int64, limit int) ([]syncx.Event, error)
}

// GET /api/events?since=<seq>&limit=<n>
func ListEventsHandler(events EventLister, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, err := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
		if err != nil || since < 0 {
			since = 0
		}
		list, err := events.Since(r.Context(), since, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			log.ErrorContext(r.Context(), "list events", slog.Any("err", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
