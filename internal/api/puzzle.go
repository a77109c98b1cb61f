package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/ledger"
	"github.com/eduwordle/puzzle-ledger/internal/puzzle"
	"github.com/eduwordle/puzzle-ledger/internal/store"
)

// --- Request/Response types ---

// InitializeDayRequest is the JSON body for POST /puzzle/days.
type InitializeDayRequest struct {
	SolutionHash common.Hash `json:"solution_hash"` // keccak256 of the uppercase word
}

// SubmitAnswerRequest is the JSON body for POST /puzzle/answers.
type SubmitAnswerRequest struct {
	Guess string `json:"guess"`
}

// HintResponse is the result of POST /puzzle/hints.
type HintResponse struct {
	HintsPurchasedToday int64 `json:"hints_purchased_today"`
}

// PuzzleResponse is returned by GET /puzzle.
type PuzzleResponse struct {
	puzzle.Snapshot
	Today     int64            `json:"today"`
	Open      bool             `json:"open"`
	Addresses ledger.Addresses `json:"addresses"`
}

// AmountRequest is the JSON body of the single-amount endpoints.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WithdrawRequest is the JSON body for POST /treasury/withdraw.
type WithdrawRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Recipient common.Address  `json:"recipient"`
}

// StreakBonusRequest is the JSON body for PUT /admin/streak-bonus.
type StreakBonusRequest struct {
	Bps int64 `json:"bps"`
}

// AddressRequest is the JSON body of the single-address endpoints.
type AddressRequest struct {
	Address common.Address `json:"address"`
}

// --- Puzzle ---

// InitializeDay handles POST /api/v1/puzzle/days
func (s *Server) InitializeDay(w http.ResponseWriter, r *http.Request) {
	var req InitializeDayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "initialize_day", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().InitializeDay(ctx, tx, call, req.SolutionHash)
	})
}

// SubmitAnswer handles POST /api/v1/puzzle/answers
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "submit_answer", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return s.ledger.Engine().SubmitAnswer(ctx, tx, call, req.Guess)
	})
}

// BuyHint handles POST /api/v1/puzzle/hints
func (s *Server) BuyHint(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, "buy_hint", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		n, err := s.ledger.Engine().BuyHint(ctx, tx, call)
		if err != nil {
			return nil, err
		}
		return HintResponse{HintsPurchasedToday: n}, nil
	})
}

// GetPuzzle handles GET /api/v1/puzzle
func (s *Server) GetPuzzle(w http.ResponseWriter, r *http.Request) {
	today := chain.DayID(s.ledger.Now())
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		snap, err := s.ledger.Engine().Snapshot(ctx, tx)
		if err != nil {
			return nil, err
		}
		return PuzzleResponse{
			Snapshot:  snap,
			Today:     today,
			Open:      snap.CurrentDay == today,
			Addresses: s.ledger.Addresses(),
		}, nil
	})
}

// GetPlayer handles GET /api/v1/players/{address}
func (s *Server) GetPlayer(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}
	s.view(w, r, func(ctx context.Context, tx store.Tx) (any, error) {
		return s.ledger.Engine().Player(ctx, tx, addr)
	})
}

// --- Treasury ---

// FundTreasury handles POST /api/v1/treasury/fund
func (s *Server) FundTreasury(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "fund_treasury", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().FundTreasury(ctx, tx, call, req.Amount)
	})
}

// WithdrawFunds handles POST /api/v1/treasury/withdraw
func (s *Server) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "withdraw_funds", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().WithdrawFunds(ctx, tx, call, req.Amount, req.Recipient)
	})
}

// --- Admin ---

// SetBaseReward handles PUT /api/v1/admin/base-reward
func (s *Server) SetBaseReward(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "set_base_reward", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().SetBaseRewardAmount(ctx, tx, call, req.Amount)
	})
}

// SetHintPrice handles PUT /api/v1/admin/hint-price
func (s *Server) SetHintPrice(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "set_hint_price", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().SetHintPrice(ctx, tx, call, req.Amount)
	})
}

// SetStreakBonus handles PUT /api/v1/admin/streak-bonus
func (s *Server) SetStreakBonus(w http.ResponseWriter, r *http.Request) {
	var req StreakBonusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "set_streak_bonus", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().SetStreakBonus(ctx, tx, call, req.Bps)
	})
}

// SetLeaderboard handles PUT /api/v1/admin/leaderboard
func (s *Server) SetLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "set_leaderboard", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().SetLeaderboardContract(ctx, tx, call, req.Address)
	})
}

// TransferOwnership handles PUT /api/v1/admin/owner
func (s *Server) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, "transfer_ownership", func(ctx context.Context, tx store.Tx, call chain.Call) (any, error) {
		return nil, s.ledger.Engine().TransferOwnership(ctx, tx, call, req.Address)
	})
}
