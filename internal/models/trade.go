package models

import "time"

// Trade represents one logged trading event. ResultR is the signed outcome
// in R-multiples; RiskR is the planned risk and stays nil when the user
// skipped it or supplied something unparseable.
type Trade struct {
	ID           string
	CreatedAt    time.Time
	ResultR      float64
	RiskR        *float64
	Session      string
	Timeframe    string
	Bias         string
	StrategyID   string
	StrategyName string // snapshot; survives strategy deletion
	Notes        string
	Tags         []string
	RuleBreaks   []string
}

// Win reports whether the trade closed positive.
func (t *Trade) Win() bool { return t.ResultR > 0 }

// Loss reports whether the trade closed negative. Breakeven is neither a
// win nor a loss.
func (t *Trade) Loss() bool { return t.ResultR < 0 }

// DailyPlan is the pre-session plan for one day. At most one row per day
// key; saving again overwrites.
type DailyPlan struct {
	Day         string // YYYY-MM-DD
	Bias        string
	NewsCaution bool
	KeyLevels   string
	Scenarios   string
	CreatedAt   time.Time
}

// DailyCloseout is the end-of-session review for one day. Upsert per day,
// like DailyPlan.
type DailyCloseout struct {
	Day       string
	Mood      int // 1..5
	Grade     string
	Review    string
	Lessons   string
	CreatedAt time.Time
}

// Strategy is a named reusable trade definition. Deleting one does not
// touch the trades that reference it.
type Strategy struct {
	ID          string
	Name        string
	Market      Market
	StyleTags   []string
	Timeframes  []string
	Description string
	Checklist   string
	ImageRef    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
