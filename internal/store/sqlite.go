// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tradeguard/internal/daykey"
	apperrors "tradeguard/internal/errors"
	"tradeguard/internal/models"
	"tradeguard/internal/rulebreak"
)

// streakScanLimit caps the consecutive-loss lookback to the most recent
// trades of the day. A single day rarely comes close, but the cap keeps the
// scan bounded no matter what the history looks like.
const streakScanLimit = 50

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteStore creates a new SQLite-based journal store. The location
// defines where calendar days begin and end for day-keyed queries.
func NewSQLiteStore(dbPath string, loc *time.Location) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.Local
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		loc: loc,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Settings table: string key/value pairs, the gate reads these fresh
	-- on every evaluation
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER
	);

	-- Trades table: one row per logged trading event
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		result_r REAL NOT NULL,
		risk_r REAL,
		session TEXT,
		timeframe TEXT,
		bias TEXT,
		strategy_id TEXT,
		strategy_name TEXT,
		notes TEXT,
		tags TEXT,
		rule_breaks TEXT
	);

	-- Daily plans: at most one row per day key
	CREATE TABLE IF NOT EXISTS daily_plans (
		day TEXT PRIMARY KEY,
		bias TEXT,
		news_caution INTEGER DEFAULT 0,
		key_levels TEXT,
		scenarios TEXT,
		created_at INTEGER NOT NULL
	);

	-- Daily closeouts: at most one row per day key
	CREATE TABLE IF NOT EXISTS daily_closeouts (
		day TEXT PRIMARY KEY,
		mood INTEGER,
		grade TEXT,
		review TEXT,
		lessons TEXT,
		created_at INTEGER NOT NULL
	);

	-- Strategies: reusable trade definitions
	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		market TEXT,
		style_tags TEXT,
		timeframes TEXT,
		description TEXT,
		checklist TEXT,
		image_ref TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at);
	CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
	CREATE INDEX IF NOT EXISTS idx_strategies_name ON strategies(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dayBounds converts a day key to epoch-ms bounds [start, end) in the
// store's location.
func (s *SQLiteStore) dayBounds(dayKey string) (int64, int64, error) {
	start, end, err := daykey.Window(dayKey, s.loc)
	if err != nil {
		return 0, 0, err
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}

// ============================================================================
// Settings Methods
// ============================================================================

// GetSetting returns the raw value for a key. The second return reports
// whether the key exists at all.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageError("get setting", err)
	}
	return value, true, nil
}

// SetSetting upserts a key/value pair.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return apperrors.NewStorageError("set setting", err)
	}
	return nil
}

// GetAllSettings returns every stored setting.
func (s *SQLiteStore) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM settings ORDER BY key ASC
	`)
	if err != nil {
		return nil, apperrors.NewStorageError("list settings", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, apperrors.NewStorageError("scan setting", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list settings", err)
	}
	return settings, nil
}

// ============================================================================
// Trades Methods
// ============================================================================

// LogTrade saves a trade to the database. Tag and rule-break lists are
// normalized and de-duplicated on the way in so the stored CSV is canonical.
// Result and risk values must be finite; a NaN would poison every daily sum
// built on top of this row.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.Trade) error {
	if math.IsNaN(trade.ResultR) || math.IsInf(trade.ResultR, 0) {
		return apperrors.NewValidationError("result_r", fmt.Sprintf("%v", trade.ResultR), "must be a finite number")
	}

	var riskR interface{}
	if trade.RiskR != nil {
		if math.IsNaN(*trade.RiskR) || math.IsInf(*trade.RiskR, 0) {
			return apperrors.NewValidationError("risk_r", fmt.Sprintf("%v", *trade.RiskR), "must be a finite number")
		}
		riskR = *trade.RiskR
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, created_at, result_r, risk_r, session, timeframe, bias, strategy_id, strategy_name, notes, tags, rule_breaks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.CreatedAt.UnixMilli(), trade.ResultR, riskR, trade.Session, trade.Timeframe, trade.Bias,
		trade.StrategyID, trade.StrategyName, trade.Notes,
		models.FormatTags(trade.Tags), rulebreak.FormatList(trade.RuleBreaks))
	if err != nil {
		return apperrors.NewStorageError("log trade", err)
	}
	return nil
}

// GetTrade retrieves a single trade by ID. Returns nil when absent.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	var t models.Trade
	var createdAt int64
	var riskR sql.NullFloat64
	var tags, ruleBreaks string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, result_r, risk_r, session, timeframe, bias, strategy_id, strategy_name, notes, tags, rule_breaks
		FROM trades WHERE id = ?
	`, id).Scan(&t.ID, &createdAt, &t.ResultR, &riskR, &t.Session, &t.Timeframe, &t.Bias,
		&t.StrategyID, &t.StrategyName, &t.Notes, &tags, &ruleBreaks)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get trade", err)
	}

	t.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
	if riskR.Valid {
		r := riskR.Float64
		t.RiskR = &r
	}
	t.Tags = models.ParseTags(tags)
	t.RuleBreaks = rulebreak.ParseList(ruleBreaks)
	return &t, nil
}

// GetTrades retrieves trades matching the filter, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT id, created_at, result_r, risk_r, session, timeframe, bias, strategy_id, strategy_name, notes, tags, rule_breaks FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Day != "" {
		startMs, endMs, err := s.dayBounds(filter.Day)
		if err != nil {
			return nil, apperrors.NewValidationError("day", filter.Day, "not a valid day key")
		}
		query += " AND created_at >= ? AND created_at < ?"
		args = append(args, startMs, endMs)
	} else {
		if !filter.From.IsZero() {
			query += " AND created_at >= ?"
			args = append(args, filter.From.UnixMilli())
		}
		if !filter.To.IsZero() {
			query += " AND created_at < ?"
			args = append(args, filter.To.UnixMilli())
		}
	}
	if filter.StrategyID != "" {
		query += " AND strategy_id = ?"
		args = append(args, filter.StrategyID)
	}
	if filter.Tag != "" {
		query += " AND ',' || tags || ',' LIKE '%,' || ? || ',%'"
		args = append(args, models.NormalizeTag(filter.Tag))
	}
	if filter.RuleBreak != "" {
		query += " AND ',' || rule_breaks || ',' LIKE '%,' || ? || ',%'"
		args = append(args, string(rulebreak.Normalize(filter.RuleBreak)))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("query trades", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var createdAt int64
		var riskR sql.NullFloat64
		var tags, ruleBreaks string

		if err := rows.Scan(&t.ID, &createdAt, &t.ResultR, &riskR, &t.Session, &t.Timeframe, &t.Bias,
			&t.StrategyID, &t.StrategyName, &t.Notes, &tags, &ruleBreaks); err != nil {
			return nil, apperrors.NewStorageError("scan trade", err)
		}

		t.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
		if riskR.Valid {
			r := riskR.Float64
			t.RiskR = &r
		}
		t.Tags = models.ParseTags(tags)
		t.RuleBreaks = rulebreak.ParseList(ruleBreaks)
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("query trades", err)
	}
	return trades, nil
}

// UpdateTradeNotes replaces the notes on a trade.
func (s *SQLiteStore) UpdateTradeNotes(ctx context.Context, id, notes string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trades SET notes = ? WHERE id = ?
	`, notes, id)
	if err != nil {
		return apperrors.NewStorageError("update trade notes", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("trade %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// UpdateTradeTags replaces the tag list on a trade.
func (s *SQLiteStore) UpdateTradeTags(ctx context.Context, id string, tags []string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trades SET tags = ? WHERE id = ?
	`, models.FormatTags(tags), id)
	if err != nil {
		return apperrors.NewStorageError("update trade tags", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("trade %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteTrade hard-deletes a trade. There is no undo.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM trades WHERE id = ?
	`, id)
	if err != nil {
		return apperrors.NewStorageError("delete trade", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("trade %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// GetTradeStatsForDay aggregates the day's trades. The consecutive-loss
// streak walks the most recent trades first and stops at the first
// non-negative result.
func (s *SQLiteStore) GetTradeStatsForDay(ctx context.Context, dayKey string) (*models.DayStats, error) {
	startMs, endMs, err := s.dayBounds(dayKey)
	if err != nil {
		return nil, apperrors.NewValidationError("day", dayKey, "not a valid day key")
	}

	stats := &models.DayStats{}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(result_r), 0),
		       COALESCE(SUM(CASE WHEN result_r > 0 THEN 1 ELSE 0 END), 0)
		FROM trades
		WHERE created_at >= ? AND created_at < ?
	`, startMs, endMs).Scan(&stats.TradeCount, &stats.SumR, &stats.Wins)
	if err != nil {
		return nil, apperrors.NewStorageError("aggregate day stats", err)
	}

	if stats.TradeCount > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TradeCount)
		stats.AvgR = stats.SumR / float64(stats.TradeCount)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT result_r FROM trades
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?
	`, startMs, endMs, streakScanLimit)
	if err != nil {
		return nil, apperrors.NewStorageError("scan loss streak", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resultR float64
		if err := rows.Scan(&resultR); err != nil {
			return nil, apperrors.NewStorageError("scan loss streak", err)
		}
		if resultR >= 0 {
			break
		}
		stats.ConsecutiveLosses++
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("scan loss streak", err)
	}
	return stats, nil
}

// ============================================================================
// Daily Plans Methods
// ============================================================================

// SaveDailyPlan upserts the plan for its day. Re-saving a day overwrites.
func (s *SQLiteStore) SaveDailyPlan(ctx context.Context, plan *models.DailyPlan) error {
	newsCaution := 0
	if plan.NewsCaution {
		newsCaution = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_plans (day, bias, news_caution, key_levels, scenarios, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, plan.Day, plan.Bias, newsCaution, plan.KeyLevels, plan.Scenarios, plan.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.NewStorageError("save daily plan", err)
	}
	return nil
}

// GetDailyPlan retrieves the plan for a day. Returns nil when absent.
func (s *SQLiteStore) GetDailyPlan(ctx context.Context, day string) (*models.DailyPlan, error) {
	var p models.DailyPlan
	var newsCaution int
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT day, bias, news_caution, key_levels, scenarios, created_at
		FROM daily_plans WHERE day = ?
	`, day).Scan(&p.Day, &p.Bias, &newsCaution, &p.KeyLevels, &p.Scenarios, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get daily plan", err)
	}

	p.NewsCaution = newsCaution == 1
	p.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
	return &p, nil
}

// HasDailyPlan reports whether a plan row exists for the day.
func (s *SQLiteStore) HasDailyPlan(ctx context.Context, day string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM daily_plans WHERE day = ?
	`, day).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("check daily plan", err)
	}
	return true, nil
}

// ============================================================================
// Daily Closeouts Methods
// ============================================================================

// SaveDailyCloseout upserts the closeout for its day.
func (s *SQLiteStore) SaveDailyCloseout(ctx context.Context, closeout *models.DailyCloseout) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_closeouts (day, mood, grade, review, lessons, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, closeout.Day, closeout.Mood, closeout.Grade, closeout.Review, closeout.Lessons, closeout.CreatedAt.UnixMilli())
	if err != nil {
		return apperrors.NewStorageError("save daily closeout", err)
	}
	return nil
}

// GetDailyCloseout retrieves the closeout for a day. Returns nil when absent.
func (s *SQLiteStore) GetDailyCloseout(ctx context.Context, day string) (*models.DailyCloseout, error) {
	var c models.DailyCloseout
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT day, mood, grade, review, lessons, created_at
		FROM daily_closeouts WHERE day = ?
	`, day).Scan(&c.Day, &c.Mood, &c.Grade, &c.Review, &c.Lessons, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get daily closeout", err)
	}

	c.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
	return &c, nil
}

// HasDailyCloseout reports whether a closeout row exists for the day.
func (s *SQLiteStore) HasDailyCloseout(ctx context.Context, day string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM daily_closeouts WHERE day = ?
	`, day).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("check daily closeout", err)
	}
	return true, nil
}

// ============================================================================
// Strategies Methods
// ============================================================================

// SaveStrategy upserts a strategy.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, strategy *models.Strategy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO strategies (id, name, market, style_tags, timeframes, description, checklist, image_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, strategy.ID, strategy.Name, string(strategy.Market),
		models.FormatTags(strategy.StyleTags), models.FormatTags(strategy.Timeframes),
		strategy.Description, strategy.Checklist, strategy.ImageRef,
		strategy.CreatedAt.UnixMilli(), strategy.UpdatedAt.UnixMilli())
	if err != nil {
		return apperrors.NewStorageError("save strategy", err)
	}
	return nil
}

// GetStrategy retrieves a strategy by ID. Returns nil when absent.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	return s.getStrategyWhere(ctx, "id = ?", id)
}

// GetStrategyByName retrieves a strategy by exact name. Returns nil when
// absent.
func (s *SQLiteStore) GetStrategyByName(ctx context.Context, name string) (*models.Strategy, error) {
	return s.getStrategyWhere(ctx, "name = ?", name)
}

func (s *SQLiteStore) getStrategyWhere(ctx context.Context, where string, arg interface{}) (*models.Strategy, error) {
	var st models.Strategy
	var market, styleTags, timeframes string
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, market, style_tags, timeframes, description, checklist, image_ref, created_at, updated_at
		FROM strategies WHERE `+where, arg).Scan(
		&st.ID, &st.Name, &market, &styleTags, &timeframes,
		&st.Description, &st.Checklist, &st.ImageRef, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get strategy", err)
	}

	st.Market = models.Market(market)
	st.StyleTags = models.ParseTags(styleTags)
	st.Timeframes = models.ParseTags(timeframes)
	st.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
	st.UpdatedAt = time.UnixMilli(updatedAt).In(s.loc)
	return &st, nil
}

// ListStrategies retrieves all strategies ordered by name.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, market, style_tags, timeframes, description, checklist, image_ref, created_at, updated_at
		FROM strategies ORDER BY name ASC
	`)
	if err != nil {
		return nil, apperrors.NewStorageError("list strategies", err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		var st models.Strategy
		var market, styleTags, timeframes string
		var createdAt, updatedAt int64

		if err := rows.Scan(&st.ID, &st.Name, &market, &styleTags, &timeframes,
			&st.Description, &st.Checklist, &st.ImageRef, &createdAt, &updatedAt); err != nil {
			return nil, apperrors.NewStorageError("scan strategy", err)
		}

		st.Market = models.Market(market)
		st.StyleTags = models.ParseTags(styleTags)
		st.Timeframes = models.ParseTags(timeframes)
		st.CreatedAt = time.UnixMilli(createdAt).In(s.loc)
		st.UpdatedAt = time.UnixMilli(updatedAt).In(s.loc)
		strategies = append(strategies, st)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list strategies", err)
	}
	return strategies, nil
}

// DeleteStrategy deletes a strategy. Trades referencing it keep their
// denormalized strategy name.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM strategies WHERE id = ?
	`, id)
	if err != nil {
		return apperrors.NewStorageError("delete strategy", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("strategy %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
