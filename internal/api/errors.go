package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
)

var (
	ErrBadRequest  = chain.NewError("bad_request", "api: malformed request")
	ErrNotFound    = chain.NewError("not_found", "api: not found")
	ErrRateLimited = chain.NewError("rate_limited", "api: too many requests")
)

// statusByCode maps rejection codes to HTTP statuses. Unlisted codes are
// client errors (400); non-rejections are 500.
var statusByCode = map[string]int{
	"missing_signature":  http.StatusUnauthorized,
	"invalid_signature":  http.StatusUnauthorized,
	"stale_timestamp":    http.StatusUnauthorized,
	"replayed_signature": http.StatusUnauthorized,

	"unauthorized": http.StatusForbidden,
	"not_found":    http.StatusNotFound,

	"already_deployed":            http.StatusConflict,
	"day_already_initialized":     http.StatusConflict,
	"puzzle_not_initialized":      http.StatusConflict,
	"already_claimed_today":       http.StatusConflict,
	"already_solved_today":        http.StatusConflict,
	"max_hints_reached":           http.StatusConflict,
	"insufficient_treasury_funds": http.StatusConflict,
	"insufficient_balance":        http.StatusConflict,
	"insufficient_allowance":      http.StatusConflict,
	"leaderboard_unavailable":     http.StatusConflict,

	"incorrect_answer": http.StatusUnprocessableEntity,
	"rate_limited":     http.StatusTooManyRequests,
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if !chain.IsRejection(err) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[chain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusBadRequest
}

// writeError writes a JSON error response. Internal failures are logged and
// reported without detail.
func writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		msg = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": chain.CodeOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
