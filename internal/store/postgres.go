package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// ledgerLockKey is the advisory lock every Update takes, so ledger
// transactions from any number of processes commit in a single order.
const ledgerLockKey int64 = 0x7075_7a7a_6c65

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact integer precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
		return fn(&pgTx{tx: tx})
	})
}

func (s *PostgresStore) View(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, readOnly: true})
	})
}

func (s *PostgresStore) Events(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	contract := ""
	if f.Contract != (common.Address{}) {
		contract = f.Contract.Hex()
	}
	rows, err := s.pool.Query(ctx,
		`SELECT seq, tx_id, contract, name, day_id, attributes::TEXT, created_at
		 FROM ledger_events
		 WHERE seq > $1 AND ($2 = '' OR name = $2) AND ($3 = '' OR contract = $3)
		 ORDER BY seq
		 LIMIT NULLIF($4::BIGINT, 0)`,
		f.AfterSeq, f.Name, contract, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// pgTx implements Tx over a pgx transaction.
type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *pgTx) Puzzle(ctx context.Context) (model.Puzzle, error) {
	var p model.Puzzle
	var hash, treasury, base, price, owner, board string

	err := t.tx.QueryRow(ctx,
		`SELECT current_day, solution_hash, solvers_today, solvers_day,
		        treasury_balance::TEXT, base_reward::TEXT, hint_price::TEXT,
		        streak_bonus_bps, max_hints, owner, leaderboard
		 FROM puzzle_state WHERE id = 1`).
		Scan(&p.CurrentDay, &hash, &p.SolversToday, &p.SolversDay,
			&treasury, &base, &price,
			&p.StreakBonusBps, &p.MaxHintsPerDay, &owner, &board)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Puzzle{}, nil
	}
	if err != nil {
		return model.Puzzle{}, fmt.Errorf("get puzzle: %w", err)
	}

	p.SolutionHash = parseHash(hash)
	p.Treasury, _ = decimal.NewFromString(treasury)
	p.BaseReward, _ = decimal.NewFromString(base)
	p.HintPrice, _ = decimal.NewFromString(price)
	p.Owner = parseAddress(owner)
	p.Leaderboard = parseAddress(board)
	return p, nil
}

func (t *pgTx) PutPuzzle(ctx context.Context, p model.Puzzle) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO puzzle_state (id, current_day, solution_hash, solvers_today, solvers_day,
		        treasury_balance, base_reward, hint_price, streak_bonus_bps, max_hints, owner, leaderboard)
		 VALUES (1, $1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		        current_day = EXCLUDED.current_day, solution_hash = EXCLUDED.solution_hash,
		        solvers_today = EXCLUDED.solvers_today, solvers_day = EXCLUDED.solvers_day,
		        treasury_balance = EXCLUDED.treasury_balance, base_reward = EXCLUDED.base_reward,
		        hint_price = EXCLUDED.hint_price, streak_bonus_bps = EXCLUDED.streak_bonus_bps,
		        max_hints = EXCLUDED.max_hints, owner = EXCLUDED.owner, leaderboard = EXCLUDED.leaderboard`,
		p.CurrentDay, formatHash(p.SolutionHash), p.SolversToday, p.SolversDay,
		p.Treasury.String(), p.BaseReward.String(), p.HintPrice.String(),
		p.StreakBonusBps, p.MaxHintsPerDay, formatAddress(p.Owner), formatAddress(p.Leaderboard),
	)
	return err
}

func (t *pgTx) Player(ctx context.Context, addr common.Address) (model.PlayerRecord, error) {
	rec := model.PlayerRecord{Address: addr}
	err := t.tx.QueryRow(ctx,
		`SELECT streak, last_claimed_day, hints_today, last_hint_day
		 FROM player_records WHERE address = $1`, addr.Hex()).
		Scan(&rec.Streak, &rec.LastClaimedDay, &rec.HintsToday, &rec.LastHintDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("get player %s: %w", addr.Hex(), err)
	}
	return rec, nil
}

func (t *pgTx) PutPlayer(ctx context.Context, rec model.PlayerRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO player_records (address, streak, last_claimed_day, hints_today, last_hint_day)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (address) DO UPDATE SET
		        streak = EXCLUDED.streak, last_claimed_day = EXCLUDED.last_claimed_day,
		        hints_today = EXCLUDED.hints_today, last_hint_day = EXCLUDED.last_hint_day`,
		rec.Address.Hex(), rec.Streak, rec.LastClaimedDay, rec.HintsToday, rec.LastHintDay,
	)
	return err
}

func (t *pgTx) Registry(ctx context.Context) (model.RegistryConfig, error) {
	var cfg model.RegistryConfig
	var owner, engine string
	err := t.tx.QueryRow(ctx,
		`SELECT owner, puzzle_engine, max_top_players FROM leaderboard_config WHERE id = 1`).
		Scan(&owner, &engine, &cfg.MaxTopPlayers)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("get registry config: %w", err)
	}
	cfg.Owner = parseAddress(owner)
	cfg.PuzzleEngine = parseAddress(engine)
	return cfg, nil
}

func (t *pgTx) PutRegistry(ctx context.Context, cfg model.RegistryConfig) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO leaderboard_config (id, owner, puzzle_engine, max_top_players)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		        owner = EXCLUDED.owner, puzzle_engine = EXCLUDED.puzzle_engine,
		        max_top_players = EXCLUDED.max_top_players`,
		formatAddress(cfg.Owner), formatAddress(cfg.PuzzleEngine), cfg.MaxTopPlayers,
	)
	return err
}

func (t *pgTx) Entry(ctx context.Context, addr common.Address) (model.LeaderboardEntry, error) {
	e := model.LeaderboardEntry{Address: addr}
	var rewards string
	err := t.tx.QueryRow(ctx,
		`SELECT total_wins, longest_streak, current_streak, total_rewards::TEXT, last_win_day
		 FROM leaderboard_entries WHERE address = $1`, addr.Hex()).
		Scan(&e.TotalWins, &e.LongestStreak, &e.CurrentStreak, &rewards, &e.LastWinDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, nil
	}
	if err != nil {
		return e, fmt.Errorf("get leaderboard entry %s: %w", addr.Hex(), err)
	}
	e.TotalRewards, _ = decimal.NewFromString(rewards)
	e.Exists = true
	return e, nil
}

func (t *pgTx) PutEntry(ctx context.Context, e model.LeaderboardEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO leaderboard_entries (address, total_wins, longest_streak, current_streak, total_rewards, last_win_day)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)
		 ON CONFLICT (address) DO UPDATE SET
		        total_wins = EXCLUDED.total_wins, longest_streak = EXCLUDED.longest_streak,
		        current_streak = EXCLUDED.current_streak, total_rewards = EXCLUDED.total_rewards,
		        last_win_day = EXCLUDED.last_win_day`,
		e.Address.Hex(), e.TotalWins, e.LongestStreak, e.CurrentStreak, e.TotalRewards.String(), e.LastWinDay,
	)
	return err
}

func (t *pgTx) EntryCount(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard_entries`).Scan(&n)
	return n, err
}

func (t *pgTx) Ranking(ctx context.Context, board model.Board) ([]model.RankedPlayer, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT address, metric FROM leaderboard_rankings WHERE board = $1 ORDER BY position`,
		string(board))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranked []model.RankedPlayer
	for rows.Next() {
		var addr string
		var rp model.RankedPlayer
		if err := rows.Scan(&addr, &rp.Metric); err != nil {
			return nil, err
		}
		rp.Address = parseAddress(addr)
		ranked = append(ranked, rp)
	}
	return ranked, rows.Err()
}

func (t *pgTx) PutRanking(ctx context.Context, board model.Board, ranked []model.RankedPlayer) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM leaderboard_rankings WHERE board = $1`, string(board)); err != nil {
		return err
	}
	for i, rp := range ranked {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO leaderboard_rankings (board, position, address, metric) VALUES ($1, $2, $3, $4)`,
			string(board), i, rp.Address.Hex(), rp.Metric,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) Balance(ctx context.Context, token, holder common.Address) (decimal.Decimal, error) {
	var amount string
	err := t.tx.QueryRow(ctx,
		`SELECT amount::TEXT FROM token_balances WHERE token = $1 AND holder = $2`,
		token.Hex(), holder.Hex()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance %s: %w", holder.Hex(), err)
	}
	return decimal.NewFromString(amount)
}

func (t *pgTx) PutBalance(ctx context.Context, token, holder common.Address, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO token_balances (token, holder, amount) VALUES ($1, $2, $3::NUMERIC)
		 ON CONFLICT (token, holder) DO UPDATE SET amount = EXCLUDED.amount`,
		token.Hex(), holder.Hex(), amount.String(),
	)
	return err
}

func (t *pgTx) Allowance(ctx context.Context, token, owner, spender common.Address) (decimal.Decimal, error) {
	var amount string
	err := t.tx.QueryRow(ctx,
		`SELECT amount::TEXT FROM token_allowances WHERE token = $1 AND owner = $2 AND spender = $3`,
		token.Hex(), owner.Hex(), spender.Hex()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get allowance: %w", err)
	}
	return decimal.NewFromString(amount)
}

func (t *pgTx) PutAllowance(ctx context.Context, token, owner, spender common.Address, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO token_allowances (token, owner, spender, amount) VALUES ($1, $2, $3, $4::NUMERIC)
		 ON CONFLICT (token, owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		token.Hex(), owner.Hex(), spender.Hex(), amount.String(),
	)
	return err
}

func (t *pgTx) AppendEvent(ctx context.Context, e *model.Event) error {
	if err := t.writable(); err != nil {
		return err
	}
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("encode event attributes: %w", err)
	}
	return t.tx.QueryRow(ctx,
		`INSERT INTO ledger_events (tx_id, contract, name, day_id, attributes, created_at)
		 VALUES ($1, $2, $3, $4, $5::JSONB, $6)
		 RETURNING seq`,
		e.TxID, e.Contract.Hex(), e.Name, e.DayID, string(attrs), e.Time,
	).Scan(&e.Seq)
}

// pgxRows is the subset of pgx.Rows the scan helpers need.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows pgxRows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		var contract, attrs string

		if err := rows.Scan(&e.Seq, &e.TxID, &contract, &e.Name, &e.DayID, &attrs, &e.Time); err != nil {
			return nil, err
		}
		e.Contract = parseAddress(contract)
		if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", e.Seq, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Zero addresses and hashes are stored as empty strings.

func formatAddress(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func parseAddress(s string) common.Address {
	if s == "" {
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func formatHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func parseHash(s string) common.Hash {
	if s == "" {
		return common.Hash{}
	}
	return common.HexToHash(s)
}
