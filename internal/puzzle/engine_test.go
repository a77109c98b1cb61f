package puzzle_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduwordle/puzzle-ledger/internal/asset"
	"github.com/eduwordle/puzzle-ledger/internal/chain"
	"github.com/eduwordle/puzzle-ledger/internal/leaderboard"
	"github.com/eduwordle/puzzle-ledger/internal/model"
	"github.com/eduwordle/puzzle-ledger/internal/puzzle"
	"github.com/eduwordle/puzzle-ledger/internal/store"
	"github.com/eduwordle/puzzle-ledger/internal/word"
)

var (
	admin      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice      = common.HexToAddress("0xa000000000000000000000000000000000000001")
	bob        = common.HexToAddress("0xb000000000000000000000000000000000000001")
	tokenAt    = common.HexToAddress("0x7000000000000000000000000000000000000001")
	engineAt   = common.HexToAddress("0xe000000000000000000000000000000000000001")
	registryAt = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// day0 is 2024-03-01T00:00:00Z.
const day0 = int64(1_709_251_200)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

type directory map[common.Address]puzzle.WinRecorder

func (m directory) Leaderboard(addr common.Address) (puzzle.WinRecorder, bool) {
	r, ok := m[addr]
	return r, ok
}

type env struct {
	t      *testing.T
	ctx    context.Context
	st     *store.MemoryStore
	tok    *asset.Token
	reg    *leaderboard.Registry
	engine *puzzle.Engine
	day    int64
}

// newEnv deploys token, engine and registry. The engine pays a base reward
// of 100 with a 10% streak bonus, sells up to 3 hints at 10, and holds 5000
// in its treasury. Alice and bob hold 1000 each.
func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:   t,
		ctx: context.Background(),
		st:  store.NewMemoryStore(),
		tok: asset.NewToken(tokenAt, admin, "WORD", 18),
		reg: leaderboard.NewRegistry(registryAt),
	}
	e.engine = puzzle.NewEngine(engineAt, e.tok, directory{registryAt: e.reg})

	e.must(admin, func(tx store.Tx, c chain.Call) error {
		for who, amt := range map[common.Address]int64{admin: 10_000, alice: 1000, bob: 1000} {
			if err := e.tok.Mint(e.ctx, tx, c, who, d(amt)); err != nil {
				return err
			}
		}
		if err := e.engine.Deploy(e.ctx, tx, c, puzzle.Config{
			BaseReward:     d(100),
			HintPrice:      d(10),
			StreakBonusBps: 1000,
			MaxHintsPerDay: puzzle.DefaultMaxHintsPerDay,
		}); err != nil {
			return err
		}
		if err := e.reg.Deploy(e.ctx, tx, c, engineAt, 10); err != nil {
			return err
		}
		if err := e.engine.SetLeaderboardContract(e.ctx, tx, c, registryAt); err != nil {
			return err
		}
		if err := e.tok.Approve(e.ctx, tx, c, engineAt, d(5000)); err != nil {
			return err
		}
		return e.engine.FundTreasury(e.ctx, tx, c, d(5000))
	})
	return e
}

func (e *env) call(sender common.Address) chain.Call {
	return chain.Call{
		TxID:   "tx",
		Sender: sender,
		Time:   time.Unix(day0+e.day*chain.DayLength+3600, 0).UTC(),
	}
}

func (e *env) exec(sender common.Address, fn func(tx store.Tx, c chain.Call) error) error {
	return e.st.Update(e.ctx, func(tx store.Tx) error { return fn(tx, e.call(sender)) })
}

func (e *env) must(sender common.Address, fn func(tx store.Tx, c chain.Call) error) {
	e.t.Helper()
	require.NoError(e.t, e.exec(sender, fn))
}

func (e *env) open(solution string) {
	e.t.Helper()
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, word.Hash(solution))
	})
}

func (e *env) submit(player common.Address, guess string) (*puzzle.SolveResult, error) {
	var res *puzzle.SolveResult
	err := e.exec(player, func(tx store.Tx, c chain.Call) error {
		var err error
		res, err = e.engine.SubmitAnswer(e.ctx, tx, c, guess)
		return err
	})
	return res, err
}

func (e *env) buyHint(player common.Address) (int64, error) {
	var n int64
	err := e.exec(player, func(tx store.Tx, c chain.Call) error {
		var err error
		n, err = e.engine.BuyHint(e.ctx, tx, c)
		return err
	})
	return n, err
}

func (e *env) view(fn func(tx store.Tx)) {
	e.t.Helper()
	require.NoError(e.t, e.st.View(e.ctx, func(tx store.Tx) error {
		fn(tx)
		return nil
	}))
}

func (e *env) snapshot() puzzle.Snapshot {
	e.t.Helper()
	var s puzzle.Snapshot
	e.view(func(tx store.Tx) {
		var err error
		s, err = e.engine.Snapshot(e.ctx, tx)
		require.NoError(e.t, err)
	})
	return s
}

func (e *env) player(who common.Address) puzzle.PlayerStatus {
	e.t.Helper()
	var s puzzle.PlayerStatus
	e.view(func(tx store.Tx) {
		var err error
		s, err = e.engine.Player(e.ctx, tx, who)
		require.NoError(e.t, err)
	})
	return s
}

func (e *env) balance(who common.Address) decimal.Decimal {
	e.t.Helper()
	var bal decimal.Decimal
	e.view(func(tx store.Tx) {
		var err error
		bal, err = e.tok.BalanceOf(e.ctx, tx, who)
		require.NoError(e.t, err)
	})
	return bal
}

func (e *env) approve(player common.Address, amount int64) {
	e.t.Helper()
	e.must(player, func(tx store.Tx, c chain.Call) error {
		return e.tok.Approve(e.ctx, tx, c, engineAt, d(amount))
	})
}

func assertDec(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), append([]any{"want %d, got %s", want, got}, msgAndArgs...)...)
}

// assertBacked checks the treasury never exceeds what the engine holds.
func (e *env) assertBacked() {
	e.t.Helper()
	s := e.snapshot()
	assert.True(e.t, s.TreasuryBalance.LessThanOrEqual(s.AssetBalance),
		"treasury %s exceeds asset balance %s", s.TreasuryBalance, s.AssetBalance)
}

func TestDeploy(t *testing.T) {
	e := newEnv(t)
	s := e.snapshot()
	assert.Equal(t, admin, s.Owner)
	assert.Equal(t, registryAt, s.LeaderboardContract)
	assert.Zero(t, s.CurrentDay)
	assertDec(t, 5000, s.TreasuryBalance)
	assertDec(t, 5000, s.AssetBalance)
	assertDec(t, 100, s.BaseRewardAmount)
	assertDec(t, 10, s.HintPrice)
	assert.Equal(t, int64(1000), s.StreakBonusBps)
	assert.Equal(t, int64(3), s.MaxHintsPerDay)

	err := e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.Deploy(e.ctx, tx, c, puzzle.Config{MaxHintsPerDay: 1})
	})
	assert.ErrorIs(t, err, puzzle.ErrAlreadyDeployed)
}

func TestDeploy_RejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	eng := puzzle.NewEngine(engineAt, asset.NewToken(tokenAt, admin, "WORD", 18), nil)
	c := chain.Call{Sender: admin, Time: time.Unix(day0, 0)}

	tests := []struct {
		name string
		cfg  puzzle.Config
		want error
	}{
		{"negative reward", puzzle.Config{BaseReward: d(-1), MaxHintsPerDay: 1}, puzzle.ErrInvalidAmount},
		{"negative price", puzzle.Config{HintPrice: d(-1), MaxHintsPerDay: 1}, puzzle.ErrInvalidAmount},
		{"fractional reward", puzzle.Config{BaseReward: decimal.RequireFromString("0.5"), MaxHintsPerDay: 1}, puzzle.ErrInvalidAmount},
		{"bonus too large", puzzle.Config{StreakBonusBps: puzzle.MaxStreakBonusBps + 1, MaxHintsPerDay: 1}, puzzle.ErrInvalidConfig},
		{"no hints", puzzle.Config{}, puzzle.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.NewMemoryStore().Update(ctx, func(tx store.Tx) error {
				return eng.Deploy(ctx, tx, c, tt.cfg)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInitializeDay(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	s := e.snapshot()
	assert.Equal(t, day0, s.CurrentDay)
	assert.Equal(t, word.Hash("REACT"), s.SolutionHash)
	assert.Zero(t, s.TotalSolversToday)

	events, err := e.st.Events(e.ctx, model.EventFilter{Name: "PuzzleInitialized"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engineAt, events[0].Contract)
	assert.Equal(t, word.Hash("REACT").Hex(), events[0].Attributes["solution_hash"])
}

func TestInitializeDay_Rejections(t *testing.T) {
	e := newEnv(t)

	err := e.exec(alice, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, word.Hash("REACT"))
	})
	assert.ErrorIs(t, err, chain.ErrUnauthorized)

	err = e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, common.Hash{})
	})
	assert.ErrorIs(t, err, puzzle.ErrInvalidSolutionHash)

	e.open("REACT")
	err = e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, word.Hash("CRANE"))
	})
	assert.ErrorIs(t, err, puzzle.ErrDayAlreadyInitialized)
	assert.Equal(t, word.Hash("REACT"), e.snapshot().SolutionHash)
}

func TestSubmitAnswer_Solve(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	assertDec(t, 100, e.player(alice).RewardAmount)

	res, err := e.submit(alice, "react")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Streak)
	assertDec(t, 100, res.Reward)
	assert.Equal(t, int64(1), res.SolversToday)
	assert.Equal(t, day0, res.DayID)

	assertDec(t, 1100, e.balance(alice))
	s := e.snapshot()
	assertDec(t, 4900, s.TreasuryBalance)
	assertDec(t, 4900, s.AssetBalance)
	assert.Equal(t, int64(1), s.TotalSolversToday)

	p := e.player(alice)
	assert.True(t, p.HasClaimed)
	assert.Equal(t, int64(1), p.Streak)
	assert.Equal(t, day0, p.LastClaimedDay)

	solved, err := e.st.Events(e.ctx, model.EventFilter{Name: "PuzzleSolved"})
	require.NoError(t, err)
	require.Len(t, solved, 1)
	assert.Equal(t, alice.Hex(), solved[0].Attributes["player"])
	claimed, err := e.st.Events(e.ctx, model.EventFilter{Name: "RewardClaimed"})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "100", claimed[0].Attributes["amount"])
}

func TestSubmitAnswer_IncorrectLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	_, err := e.submit(alice, "CRANE")
	require.ErrorIs(t, err, puzzle.ErrIncorrectAnswer)

	p := e.player(alice)
	assert.False(t, p.HasClaimed)
	assert.Zero(t, p.Streak)
	assertDec(t, 1000, e.balance(alice))
	assert.Zero(t, e.snapshot().TotalSolversToday)

	// Wrong guesses are free and unlimited.
	for i := 0; i < 5; i++ {
		_, err = e.submit(alice, "WRONG")
		require.ErrorIs(t, err, puzzle.ErrIncorrectAnswer)
	}
	_, err = e.submit(alice, "REACT")
	require.NoError(t, err)
}

func TestSubmitAnswer_InvalidLength(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	for _, guess := range []string{"", "REA", "REACTS"} {
		_, err := e.submit(alice, guess)
		assert.ErrorIs(t, err, puzzle.ErrInvalidGuessLength, "guess %q", guess)
	}
}

func TestSubmitAnswer_AlreadyClaimed(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	_, err := e.submit(alice, "REACT")
	require.NoError(t, err)
	_, err = e.submit(alice, "REACT")
	require.ErrorIs(t, err, puzzle.ErrAlreadyClaimedToday)
	// The claim check precedes the answer check.
	_, err = e.submit(alice, "CRANE")
	require.ErrorIs(t, err, puzzle.ErrAlreadyClaimedToday)

	assertDec(t, 1100, e.balance(alice))
	assert.Equal(t, int64(1), e.snapshot().TotalSolversToday)
}

func TestSubmitAnswer_NotInitialized(t *testing.T) {
	e := newEnv(t)

	_, err := e.submit(alice, "REACT")
	require.ErrorIs(t, err, puzzle.ErrPuzzleNotInitialized)

	e.open("REACT")
	e.day++
	// Yesterday's puzzle is closed until the owner opens today's.
	_, err = e.submit(alice, "REACT")
	require.ErrorIs(t, err, puzzle.ErrPuzzleNotInitialized)
	_, err = e.buyHint(alice)
	require.ErrorIs(t, err, puzzle.ErrPuzzleNotInitialized)
}

func TestSubmitAnswer_StreakProgression(t *testing.T) {
	e := newEnv(t)

	rewards := []int64{100, 110, 120}
	for i, want := range rewards {
		e.open("REACT")
		res, err := e.submit(alice, "REACT")
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), res.Streak)
		assertDec(t, want, res.Reward)
		e.day++
	}
	assertDec(t, 1330, e.balance(alice))

	// Skipping a day resets the streak on the next solve, not before.
	e.day++
	e.open("CRANE")
	assert.Equal(t, int64(3), e.player(alice).Streak)
	assertDec(t, 100, e.player(alice).RewardAmount)

	res, err := e.submit(alice, "CRANE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Streak)
	assertDec(t, 100, res.Reward)
}

func TestSubmitAnswer_SolverCountResetsDaily(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")
	_, err := e.submit(alice, "REACT")
	require.NoError(t, err)
	res, err := e.submit(bob, "REACT")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.SolversToday)

	e.day++
	e.open("CRANE")
	assert.Zero(t, e.snapshot().TotalSolversToday)
	res, err = e.submit(bob, "CRANE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.SolversToday)
}

func TestSubmitAnswer_InsufficientTreasury(t *testing.T) {
	e := newEnv(t)
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.WithdrawFunds(e.ctx, tx, c, d(4950), admin)
	})
	e.open("REACT")

	_, err := e.submit(alice, "REACT")
	require.ErrorIs(t, err, puzzle.ErrInsufficientTreasuryFunds)

	assertDec(t, 50, e.snapshot().TreasuryBalance)
	assertDec(t, 1000, e.balance(alice))
	assert.False(t, e.player(alice).HasClaimed)

	// Topping up lets the same player claim.
	e.approve(admin, 50)
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.FundTreasury(e.ctx, tx, c, d(50))
	})
	_, err = e.submit(alice, "REACT")
	require.NoError(t, err)
	assertDec(t, 0, e.snapshot().TreasuryBalance)
}

func TestSubmitAnswer_RecordsWinOnLeaderboard(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 2; i++ {
		e.open("REACT")
		_, err := e.submit(alice, "REACT")
		require.NoError(t, err)
		e.day++
	}

	e.view(func(tx store.Tx) {
		stats, err := e.reg.PlayerStats(e.ctx, tx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalWins)
		assert.Equal(t, int64(2), stats.LongestStreak)
		assertDec(t, 210, stats.TotalRewards)

		top, err := e.reg.TopByWins(e.ctx, tx, 5)
		require.NoError(t, err)
		assert.Equal(t, []model.RankedPlayer{{Address: alice, Metric: 2}}, top)
	})
}

func TestSubmitAnswer_LeaderboardFailureAbortsSolve(t *testing.T) {
	e := newEnv(t)
	other := common.HexToAddress("0xe000000000000000000000000000000000000002")
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.reg.SetPuzzleEngine(e.ctx, tx, c, other)
	})
	e.open("REACT")

	_, err := e.submit(alice, "REACT")
	require.ErrorIs(t, err, chain.ErrUnauthorized)
	assertDec(t, 1000, e.balance(alice))
	assertDec(t, 5000, e.snapshot().TreasuryBalance)
	assert.False(t, e.player(alice).HasClaimed)

	// An address with no registry behind it also aborts.
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetLeaderboardContract(e.ctx, tx, c, common.HexToAddress("0xdead"))
	})
	_, err = e.submit(alice, "REACT")
	require.ErrorIs(t, err, puzzle.ErrLeaderboardUnavailable)

	// Detaching the leaderboard lets solves through without recording.
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetLeaderboardContract(e.ctx, tx, c, common.Address{})
	})
	_, err = e.submit(alice, "REACT")
	require.NoError(t, err)
	e.view(func(tx store.Tx) {
		total, err := e.reg.TotalPlayers(e.ctx, tx)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestBuyHint(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")
	e.approve(alice, 100)

	for want := int64(1); want <= 3; want++ {
		n, err := e.buyHint(alice)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	_, err := e.buyHint(alice)
	require.ErrorIs(t, err, puzzle.ErrMaxHintsReached)

	assertDec(t, 970, e.balance(alice))
	assertDec(t, 5030, e.snapshot().TreasuryBalance)
	assert.Equal(t, int64(3), e.player(alice).HintsPurchased)
	e.assertBacked()

	e.day++
	e.open("CRANE")
	assert.Zero(t, e.player(alice).HintsPurchased)
	n, err := e.buyHint(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuyHint_Rejections(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")

	_, err := e.buyHint(alice)
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)
	assert.Zero(t, e.player(alice).HintsPurchased)

	e.approve(alice, 100)
	_, err = e.submit(alice, "REACT")
	require.NoError(t, err)
	_, err = e.buyHint(alice)
	require.ErrorIs(t, err, puzzle.ErrAlreadySolvedToday)
}

func TestBuyHint_FreeWhenPriceZero(t *testing.T) {
	e := newEnv(t)
	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetHintPrice(e.ctx, tx, c, decimal.Zero)
	})
	e.open("REACT")

	n, err := e.buyHint(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assertDec(t, 1000, e.balance(bob))
}

func TestTreasury_FundAndWithdraw(t *testing.T) {
	e := newEnv(t)

	err := e.exec(alice, func(tx store.Tx, c chain.Call) error {
		return e.engine.FundTreasury(e.ctx, tx, c, d(10))
	})
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)

	e.approve(alice, 10)
	e.must(alice, func(tx store.Tx, c chain.Call) error {
		return e.engine.FundTreasury(e.ctx, tx, c, d(10))
	})
	assertDec(t, 5010, e.snapshot().TreasuryBalance)

	err = e.exec(alice, func(tx store.Tx, c chain.Call) error {
		return e.engine.FundTreasury(e.ctx, tx, c, decimal.Zero)
	})
	assert.ErrorIs(t, err, puzzle.ErrInvalidAmount)

	withdraw := func(sender common.Address, amount int64, to common.Address) error {
		return e.exec(sender, func(tx store.Tx, c chain.Call) error {
			return e.engine.WithdrawFunds(e.ctx, tx, c, d(amount), to)
		})
	}
	assert.ErrorIs(t, withdraw(alice, 1, alice), chain.ErrUnauthorized)
	assert.ErrorIs(t, withdraw(admin, 0, bob), puzzle.ErrInvalidAmount)
	assert.ErrorIs(t, withdraw(admin, 1, common.Address{}), puzzle.ErrInvalidAddress)
	assert.ErrorIs(t, withdraw(admin, 5011, bob), puzzle.ErrInsufficientTreasuryFunds)

	require.NoError(t, withdraw(admin, 500, bob))
	assertDec(t, 1500, e.balance(bob))
	assertDec(t, 4510, e.snapshot().TreasuryBalance)
	e.assertBacked()

	events, err := e.st.Events(e.ctx, model.EventFilter{Name: "FundsWithdrawn"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, bob.Hex(), events[0].Attributes["recipient"])
}

func TestTreasury_DirectTransfersDoNotCount(t *testing.T) {
	e := newEnv(t)
	e.must(bob, func(tx store.Tx, c chain.Call) error {
		return e.tok.Transfer(e.ctx, tx, c, engineAt, d(250))
	})

	s := e.snapshot()
	assertDec(t, 5000, s.TreasuryBalance)
	assertDec(t, 5250, s.AssetBalance)
}

func TestAdminSetters(t *testing.T) {
	e := newEnv(t)

	err := e.exec(alice, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetBaseRewardAmount(e.ctx, tx, c, d(1))
	})
	assert.ErrorIs(t, err, chain.ErrUnauthorized)

	err = e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetStreakBonus(e.ctx, tx, c, puzzle.MaxStreakBonusBps+1)
	})
	assert.ErrorIs(t, err, puzzle.ErrInvalidConfig)

	err = e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.SetHintPrice(e.ctx, tx, c, d(-1))
	})
	assert.ErrorIs(t, err, puzzle.ErrInvalidAmount)

	e.must(admin, func(tx store.Tx, c chain.Call) error {
		if err := e.engine.SetBaseRewardAmount(e.ctx, tx, c, d(200)); err != nil {
			return err
		}
		if err := e.engine.SetHintPrice(e.ctx, tx, c, d(25)); err != nil {
			return err
		}
		return e.engine.SetStreakBonus(e.ctx, tx, c, 500)
	})
	s := e.snapshot()
	assertDec(t, 200, s.BaseRewardAmount)
	assertDec(t, 25, s.HintPrice)
	assert.Equal(t, int64(500), s.StreakBonusBps)

	for _, name := range []string{"RewardAmountUpdated", "HintPriceUpdated", "StreakBonusUpdated"} {
		events, err := e.st.Events(e.ctx, model.EventFilter{Name: name})
		require.NoError(t, err)
		assert.Len(t, events, 1, name)
	}
}

func TestFractionalAmountsRejected(t *testing.T) {
	e := newEnv(t)
	e.approve(alice, 10)
	frac := decimal.RequireFromString("100.7")
	half := decimal.RequireFromString("0.5")

	ops := map[string]struct {
		sender common.Address
		fn     func(tx store.Tx, c chain.Call) error
	}{
		"fund treasury": {alice, func(tx store.Tx, c chain.Call) error {
			return e.engine.FundTreasury(e.ctx, tx, c, half)
		}},
		"withdraw": {admin, func(tx store.Tx, c chain.Call) error {
			return e.engine.WithdrawFunds(e.ctx, tx, c, half, bob)
		}},
		"base reward": {admin, func(tx store.Tx, c chain.Call) error {
			return e.engine.SetBaseRewardAmount(e.ctx, tx, c, frac)
		}},
		"hint price": {admin, func(tx store.Tx, c chain.Call) error {
			return e.engine.SetHintPrice(e.ctx, tx, c, half)
		}},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, e.exec(op.sender, op.fn), puzzle.ErrInvalidAmount)
		})
	}

	s := e.snapshot()
	assertDec(t, 5000, s.TreasuryBalance)
	assertDec(t, 100, s.BaseRewardAmount)
	assertDec(t, 10, s.HintPrice)
	assertDec(t, 1000, e.balance(alice))
	e.assertBacked()
}

func TestTransferOwnership(t *testing.T) {
	e := newEnv(t)

	err := e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.TransferOwnership(e.ctx, tx, c, common.Address{})
	})
	assert.ErrorIs(t, err, puzzle.ErrInvalidAddress)

	e.must(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.TransferOwnership(e.ctx, tx, c, bob)
	})
	assert.Equal(t, bob, e.snapshot().Owner)

	err = e.exec(admin, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, word.Hash("REACT"))
	})
	assert.ErrorIs(t, err, chain.ErrUnauthorized)
	e.must(bob, func(tx store.Tx, c chain.Call) error {
		return e.engine.InitializeDay(e.ctx, tx, c, word.Hash("REACT"))
	})
}

func TestAccessors(t *testing.T) {
	e := newEnv(t)
	e.open("REACT")
	_, err := e.submit(alice, "REACT")
	require.NoError(t, err)

	e.view(func(tx store.Tx) {
		day, err := e.engine.CurrentDay(e.ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, day0, day)

		hash, _ := e.engine.CurrentSolutionHash(e.ctx, tx)
		assert.Equal(t, word.Hash("REACT"), hash)

		claimed, _ := e.engine.HasUserClaimed(e.ctx, tx, alice)
		assert.True(t, claimed)
		claimed, _ = e.engine.HasUserClaimed(e.ctx, tx, bob)
		assert.False(t, claimed)

		streak, _ := e.engine.UserStreak(e.ctx, tx, alice)
		assert.Equal(t, int64(1), streak)

		solvers, _ := e.engine.TotalSolversToday(e.ctx, tx)
		assert.Equal(t, int64(1), solvers)

		treasury, _ := e.engine.TreasuryBalance(e.ctx, tx)
		assertDec(t, 4900, treasury)

		owner, _ := e.engine.Owner(e.ctx, tx)
		assert.Equal(t, admin, owner)

		board, _ := e.engine.LeaderboardContract(e.ctx, tx)
		assert.Equal(t, registryAt, board)

		hints, _ := e.engine.HintsPurchased(e.ctx, tx, bob)
		assert.Zero(t, hints)

		maxHints, _ := e.engine.MaxHintsPerDay(e.ctx, tx)
		assert.Equal(t, int64(3), maxHints)

		// Alice already claimed today, so the quote falls back to the base.
		reward, _ := e.engine.RewardAmount(e.ctx, tx, alice)
		assertDec(t, 100, reward)
	})
}
