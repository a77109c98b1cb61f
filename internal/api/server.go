// Package api provides the HTTP and WebSocket surface of the puzzle ledger:
// signed write endpoints for players and the owner, public read endpoints
// for the puzzle, leaderboard, token and event log, and a live event stream.
//
// All monetary values are decimal strings in asset base units.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/ledger"
	"github.com/eduwordle/puzzle-ledger/internal/metrics"
	"github.com/eduwordle/puzzle-ledger/internal/ratelimit"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// Server handles ledger requests.
type Server struct {
	ledger  *ledger.Ledger
	auth    *Authenticator
	limiter *ratelimit.Limiter
	hub     *WSHub
}

// NewServer creates the API server. Pass nil for hub if WebSocket streaming
// is not needed.
func NewServer(l *ledger.Ledger, auth *Authenticator, limiter *ratelimit.Limiter, hub *WSHub) *Server {
	return &Server{ledger: l, auth: auth, limiter: limiter, hub: hub}
}

// Routes returns the /api/v1 router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	// Public reads.
	r.Get("/puzzle", s.GetPuzzle)
	r.Get("/players/{address}", s.GetPlayer)
	r.Get("/leaderboard/wins", s.TopByWins)
	r.Get("/leaderboard/streaks", s.TopByStreak)
	r.Get("/leaderboard/players/{address}", s.GetPlayerStats)
	r.Get("/leaderboard/stats", s.GetLeaderboardStats)
	r.Get("/token/balances/{address}", s.GetBalance)
	r.Get("/token/allowances/{owner}/{spender}", s.GetAllowance)
	r.Get("/events", s.ListEvents)

	// Signed writes.
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(s.rateLimit)

		r.Post("/puzzle/days", s.InitializeDay)
		r.Post("/puzzle/answers", s.SubmitAnswer)
		r.Post("/puzzle/hints", s.BuyHint)

		r.Post("/treasury/fund", s.FundTreasury)
		r.Post("/treasury/withdraw", s.WithdrawFunds)

		r.Put("/admin/base-reward", s.SetBaseReward)
		r.Put("/admin/hint-price", s.SetHintPrice)
		r.Put("/admin/streak-bonus", s.SetStreakBonus)
		r.Put("/admin/leaderboard", s.SetLeaderboard)
		r.Put("/admin/owner", s.TransferOwnership)

		r.Post("/token/approve", s.Approve)
		r.Post("/token/transfer", s.Transfer)
	})

	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signer, _ := SignerFrom(r.Context())
		if err := s.limiter.Allow(signer.Hex()); err != nil {
			metrics.RateLimited.Inc()
			writeError(w, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TxResponse is returned by every write endpoint.
type TxResponse struct {
	Receipt *ledger.Receipt `json:"receipt"`
	Result  any             `json:"result,omitempty"`
}

// execute runs fn as a ledger transaction from the request's signer and
// writes the receipt, or the rejection.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, method string,
	fn func(ctx context.Context, tx store.Tx, call chain.Call) (any, error)) {
	signer, ok := SignerFrom(r.Context())
	if !ok {
		writeError(w, ErrMissingSignature)
		return
	}
	var result any
	receipt, err := s.ledger.Execute(r.Context(), signer, method, func(ctx context.Context, tx store.Tx, call chain.Call) error {
		var err error
		result, err = fn(ctx, tx, call)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TxResponse{Receipt: receipt, Result: result})
}

// view runs fn against committed state and writes its result.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tx store.Tx) (any, error)) {
	var result any
	err := s.ledger.View(r.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrBadRequest
	}
	return nil
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	raw := chi.URLParam(r, name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, ErrBadRequest
	}
	return common.HexToAddress(raw), nil
}

// intQuery parses a positive integer query parameter, returning fallback
// when it is absent.
func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, ErrBadRequest
	}
	return n, nil
}
