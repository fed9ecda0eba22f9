// Package models provides domain models for the trading journal.
package models

// Mode selects how strictly the discipline gate is enforced.
type Mode string

const (
	// ModeDemo never blocks and never stamps rule-breaks. It is the
	// build-and-explore escape hatch and the default for a fresh journal.
	ModeDemo Mode = "demo"
	// ModeReal enforces the daily limits.
	ModeReal Mode = "real"
)

// ParseMode maps a stored setting value to a Mode. Only the exact string
// "real" enables enforcement; everything else, including garbage and the
// empty string, reads as demo.
func ParseMode(s string) Mode {
	if s == string(ModeReal) {
		return ModeReal
	}
	return ModeDemo
}

// Market groups strategies by instrument.
type Market string

const (
	MarketGold Market = "gold"
	MarketUS30 Market = "us30"
	MarketBoth Market = "both"
)

// DayStats aggregates one trading day's journal entries. WinRate and AvgR
// are 0 for an empty day, never NaN.
type DayStats struct {
	TradeCount        int
	Wins              int
	SumR              float64
	AvgR              float64
	WinRate           float64
	ConsecutiveLosses int
}
