package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestMemoryStore_UpdateCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.PutBalance(ctx, token, alice, decimal.NewFromInt(100)); err != nil {
			return err
		}
		if err := tx.PutPlayer(ctx, model.PlayerRecord{Address: alice, Streak: 2}); err != nil {
			return err
		}
		// Writes are visible to later reads in the same transaction.
		bal, _ := tx.Balance(ctx, token, alice)
		if !bal.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected own write to be visible, got %s", bal)
		}
		return tx.AppendEvent(ctx, &model.Event{Name: "Transfer"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	s.View(ctx, func(tx Tx) error {
		bal, _ := tx.Balance(ctx, token, alice)
		if !bal.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected committed balance 100, got %s", bal)
		}
		rec, _ := tx.Player(ctx, alice)
		if rec.Streak != 2 {
			t.Errorf("expected streak 2, got %d", rec.Streak)
		}
		return nil
	})

	events, _ := s.Events(ctx, model.EventFilter{})
	if len(events) != 1 || events[0].Seq != 1 {
		t.Fatalf("expected one event with seq 1, got %+v", events)
	}
}

func TestMemoryStore_FailedUpdateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		tx.PutBalance(ctx, token, alice, decimal.NewFromInt(5))
		tx.PutPuzzle(ctx, model.Puzzle{CurrentDay: 86400})
		tx.PutEntry(ctx, model.LeaderboardEntry{Address: alice, TotalWins: 1})
		tx.PutRanking(ctx, model.BoardWins, []model.RankedPlayer{{Address: alice, Metric: 1}})
		tx.AppendEvent(ctx, &model.Event{Name: "Transfer"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	s.View(ctx, func(tx Tx) error {
		bal, _ := tx.Balance(ctx, token, alice)
		if !bal.IsZero() {
			t.Errorf("balance leaked from failed tx: %s", bal)
		}
		p, _ := tx.Puzzle(ctx)
		if p.CurrentDay != 0 {
			t.Errorf("puzzle leaked from failed tx: %d", p.CurrentDay)
		}
		n, _ := tx.EntryCount(ctx)
		if n != 0 {
			t.Errorf("entry leaked from failed tx")
		}
		r, _ := tx.Ranking(ctx, model.BoardWins)
		if len(r) != 0 {
			t.Errorf("ranking leaked from failed tx")
		}
		return nil
	})
	if events, _ := s.Events(ctx, model.EventFilter{}); len(events) != 0 {
		t.Errorf("event leaked from failed tx: %+v", events)
	}
}

func TestMemoryStore_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.View(ctx, func(tx Tx) error {
		return tx.PutPlayer(ctx, model.PlayerRecord{Address: alice})
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestMemoryStore_AbsentRecordsReadAsZero(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.View(ctx, func(tx Tx) error {
		rec, err := tx.Player(ctx, bob)
		if err != nil || rec.Address != bob || rec.Streak != 0 {
			t.Errorf("unexpected player %+v err=%v", rec, err)
		}
		e, err := tx.Entry(ctx, bob)
		if err != nil || e.Exists {
			t.Errorf("unexpected entry %+v err=%v", e, err)
		}
		a, _ := tx.Allowance(ctx, token, alice, bob)
		if !a.IsZero() {
			t.Errorf("expected zero allowance, got %s", a)
		}
		return nil
	})
}

func TestMemoryStore_EntryCountCountsNewEntriesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Update(ctx, func(tx Tx) error {
		return tx.PutEntry(ctx, model.LeaderboardEntry{Address: alice, TotalWins: 1})
	})
	s.Update(ctx, func(tx Tx) error {
		tx.PutEntry(ctx, model.LeaderboardEntry{Address: alice, TotalWins: 2})
		tx.PutEntry(ctx, model.LeaderboardEntry{Address: bob, TotalWins: 1})
		n, _ := tx.EntryCount(ctx)
		if n != 2 {
			t.Errorf("expected 2 entries inside tx, got %d", n)
		}
		return nil
	})
}

func TestMemoryStore_RankingIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ranked := []model.RankedPlayer{{Address: alice, Metric: 3}}

	s.Update(ctx, func(tx Tx) error {
		return tx.PutRanking(ctx, model.BoardStreak, ranked)
	})
	ranked[0].Metric = 99

	s.View(ctx, func(tx Tx) error {
		r, _ := tx.Ranking(ctx, model.BoardStreak)
		if len(r) != 1 || r[0].Metric != 3 {
			t.Errorf("stored ranking was mutated externally: %+v", r)
		}
		return nil
	})
}

func TestMemoryStore_EventsFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	engine := common.HexToAddress("0x00000000000000000000000000000000000000e0")

	s.Update(ctx, func(tx Tx) error {
		tx.AppendEvent(ctx, &model.Event{Name: "PuzzleSolved", Contract: engine})
		tx.AppendEvent(ctx, &model.Event{Name: "Transfer", Contract: token})
		tx.AppendEvent(ctx, &model.Event{Name: "RewardClaimed", Contract: engine})
		return nil
	})

	tests := []struct {
		name   string
		filter model.EventFilter
		want   []int64
	}{
		{"all", model.EventFilter{}, []int64{1, 2, 3}},
		{"by name", model.EventFilter{Name: "Transfer"}, []int64{2}},
		{"by contract", model.EventFilter{Contract: engine}, []int64{1, 3}},
		{"after seq", model.EventFilter{AfterSeq: 1}, []int64{2, 3}},
		{"limit", model.EventFilter{Limit: 2}, []int64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Events(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("expected %d events, got %d", len(tt.want), len(events))
			}
			for i, e := range events {
				if e.Seq != tt.want[i] {
					t.Errorf("event %d: seq %d, want %d", i, e.Seq, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryStore().Update(ctx, func(Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("expected cancelled update to be skipped, err=%v called=%v", err, called)
	}
}
