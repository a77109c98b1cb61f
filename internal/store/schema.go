package store

// Schema creates the ledger tables. Amounts are NUMERIC(78,0) so a full
// uint256 fits; addresses and hashes are 0x-prefixed hex text.
const Schema = `
CREATE TABLE IF NOT EXISTS puzzle_state (
	id               SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	current_day      BIGINT        NOT NULL DEFAULT 0,
	solution_hash    TEXT          NOT NULL DEFAULT '',
	solvers_today    BIGINT        NOT NULL DEFAULT 0,
	solvers_day      BIGINT        NOT NULL DEFAULT 0,
	treasury_balance NUMERIC(78,0) NOT NULL DEFAULT 0,
	base_reward      NUMERIC(78,0) NOT NULL DEFAULT 0,
	hint_price       NUMERIC(78,0) NOT NULL DEFAULT 0,
	streak_bonus_bps BIGINT        NOT NULL DEFAULT 0,
	max_hints        BIGINT        NOT NULL DEFAULT 0,
	owner            TEXT          NOT NULL DEFAULT '',
	leaderboard      TEXT          NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS player_records (
	address          TEXT PRIMARY KEY,
	streak           BIGINT NOT NULL,
	last_claimed_day BIGINT NOT NULL,
	hints_today      BIGINT NOT NULL,
	last_hint_day    BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS leaderboard_config (
	id              SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	owner           TEXT    NOT NULL,
	puzzle_engine   TEXT    NOT NULL,
	max_top_players INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS leaderboard_entries (
	address        TEXT PRIMARY KEY,
	total_wins     BIGINT        NOT NULL,
	longest_streak BIGINT        NOT NULL,
	current_streak BIGINT        NOT NULL,
	total_rewards  NUMERIC(78,0) NOT NULL,
	last_win_day   BIGINT        NOT NULL
);

CREATE TABLE IF NOT EXISTS leaderboard_rankings (
	board    TEXT    NOT NULL,
	position INTEGER NOT NULL,
	address  TEXT    NOT NULL,
	metric   BIGINT  NOT NULL,
	PRIMARY KEY (board, position)
);

CREATE TABLE IF NOT EXISTS token_balances (
	token   TEXT NOT NULL,
	holder  TEXT NOT NULL,
	amount  NUMERIC(78,0) NOT NULL,
	PRIMARY KEY (token, holder)
);

CREATE TABLE IF NOT EXISTS token_allowances (
	token   TEXT NOT NULL,
	owner   TEXT NOT NULL,
	spender TEXT NOT NULL,
	amount  NUMERIC(78,0) NOT NULL,
	PRIMARY KEY (token, owner, spender)
);

CREATE TABLE IF NOT EXISTS ledger_events (
	seq        BIGSERIAL PRIMARY KEY,
	tx_id      TEXT        NOT NULL,
	contract   TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	day_id     BIGINT      NOT NULL,
	attributes JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS ledger_events_name_idx ON ledger_events (name, seq);
`
