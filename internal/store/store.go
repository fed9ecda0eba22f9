// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradeguard/internal/models"
)

// DataStore defines the interface for journal persistence.
type DataStore interface {
	// Settings
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)

	// Trades
	LogTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	UpdateTradeNotes(ctx context.Context, id, notes string) error
	UpdateTradeTags(ctx context.Context, id string, tags []string) error
	DeleteTrade(ctx context.Context, id string) error
	GetTradeStatsForDay(ctx context.Context, dayKey string) (*models.DayStats, error)

	// Daily plans
	SaveDailyPlan(ctx context.Context, plan *models.DailyPlan) error
	GetDailyPlan(ctx context.Context, day string) (*models.DailyPlan, error)
	HasDailyPlan(ctx context.Context, day string) (bool, error)

	// Daily closeouts
	SaveDailyCloseout(ctx context.Context, closeout *models.DailyCloseout) error
	GetDailyCloseout(ctx context.Context, day string) (*models.DailyCloseout, error)
	HasDailyCloseout(ctx context.Context, day string) (bool, error)

	// Strategies
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	GetStrategyByName(ctx context.Context, name string) (*models.Strategy, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	DeleteStrategy(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Day        string // single day key, overrides From/To
	From       time.Time
	To         time.Time
	StrategyID string
	Tag        string
	RuleBreak  string
	Limit      int
}
