package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
}

// storeError maps store failures onto status codes. what names the record
// for the 404 text, e.g. "Exam".
func storeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, what string, err error) {
	switch {
	case errors.Is(err, exam.ErrNotFound):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, exam.ErrConflict):
		http.Error(w, what+" already exists", http.StatusBadRequest)
	default:
		log.ErrorContext(r.Context(), "store", slog.String("record", what), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
