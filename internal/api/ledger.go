package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

const (
	defaultTopN        = 10
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// LeaderboardStats is returned by GET /leaderboard/stats.
type LeaderboardStats struct {
	TotalPlayers  int64          `json:"total_players"`
	MaxTopPlayers int            `json:"max_top_players"`
	PuzzleEngine  common.Address `json:"puzzle_engine"`
	Owner         common.Address `json:"owner"`
}

// BalanceResponse is returned by GET /token/balances/{address}.
type BalanceResponse struct {
	Address  common.Address  `json:"address"`
	Symbol   string          `json:"symbol"`
	Decimals int32           `json:"decimals"`
	Balance  decimal.Decimal `json:"balance"`
}

// AllowanceResponse is returned by GET /token/allowances/{owner}/{spender}.
type AllowanceResponse struct {
	Owner     common.Address  `json:"owner"`
	Spender   common.Address  `json:"spender"`
	Allowance decimal.Decimal `json:"allowance"`
}

// ApproveRequest is the JSON body for POST /token/approve.
type ApproveRequest struct {
	Spender common.Address  `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

// TransferRequest is the JSON body for POST /token/transfer.
type TransferRequest struct {
	To     common.Address  `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// --- Leaderboard ---

// TopByWins handles GET /api/v1/leaderboard/wins?n=
func (s *Server) TopByWins(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", defaultTopN)
	if err != nil {
		writeError(w, err)
		return
	}
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		return s.ledger.Registry().TopByWins(ctx, tx, n)
	})
}

// TopByStreak handles GET /api/v1/leaderboard/streaks?n=
func (s *Server) TopByStreak(w http.ResponseWriter, r *http.Request) {
	n, err := intQuery(r, "n", defaultTopN)
	if err != nil {
		writeError(w, err)
		return
	}
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		return s.ledger.Registry().TopByStreak(ctx, tx, n)
	})
}

// GetPlayerStats handles GET /api/v1/leaderboard/players/{address}
func (s *Server) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		e, err := s.ledger.Registry().PlayerStats(ctx, tx, addr)
		if err != nil {
			return nil, err
		}
		e.Address = addr
		return e, nil
	})
}

// GetLeaderboardStats handles GET /api/v1/leaderboard/stats
func (s *Server) GetLeaderboardStats(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		reg := s.ledger.Registry()
		total, err := reg.TotalPlayers(ctx, tx)
		if err != nil {
			return nil, err
		}
		cfg, err := reg.Config(ctx, tx)
		if err != nil {
			return nil, err
		}
		return LeaderboardStats{
			TotalPlayers:  total,
			MaxTopPlayers: cfg.MaxTopPlayers,
			PuzzleEngine:  cfg.PuzzleEngine,
			Owner:         cfg.Owner,
		}, nil
	})
}

// --- Token ---

// GetBalance handles GET /api/v1/token/balances/{address}
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}
	tok := s.ledger.Token()
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		bal, err := tok.BalanceOf(ctx, tx, addr)
		if err != nil {
			return nil, err
		}
		return BalanceResponse{Address: addr, Symbol: tok.Symbol, Decimals: tok.Decimals, Balance: bal}, nil
	})
}

// GetAllowance handles GET /api/v1/token/allowances/{owner}/{spender}
func (s *Server) GetAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := addressParam(r, "owner")
	if err != nil {
		writeError(w, err)
		return
	}
	spender, err := addressParam(r, "spender")
	if err != nil {
		writeError(w, err)
		return
	}
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		amt, err := s.ledger.Token().Allowance(ctx, tx, owner, spender)
		if err != nil {
			return nil, err
		}
		return AllowanceResponse{Owner: owner, Spender: spender, Allowance: amt}, nil
	})
}

// Approve handles POST /api/v1/token/approve
func (s *Server) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "approve", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Token().Approve(ctx, tx, call, req.Spender, req.Amount)
	})
}

// Transfer handles POST /api/v1/token/transfer
func (s *Server) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "transfer", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Token().Transfer(ctx, tx, call, req.To, req.Amount)
	})
}

// --- Event log ---

// ListEvents handles GET /api/v1/events?name=&contract=&after=&limit=
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.EventFilter{Name: q.Get("name")}

	if c := q.Get("contract"); c != "" {
		if !common.IsHexAddress(c) {
			writeError(w, ErrBadRequest)
			return
		}
		f.Contract = common.HexToAddress(c)
	}
	if after := q.Get("after"); after != "" {
		seq, err := strconv.ParseInt(after, 10, 64)
		if err != nil || seq < 0 {
			writeError(w, ErrBadRequest)
			return
		}
		f.AfterSeq = seq
	}
	limit, err := intQuery(r, "limit", defaultEventsLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	f.Limit = min(limit, maxEventsLimit)

	events, err := s.ledger.Events(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Ternary(events == nil, []model.Event{}, events))
}
