// Package rulebreak defines the closed set of discipline rule-break codes
// stamped onto trades. The gate reports soft warnings using these codes; the
// trade-entry flow persists them on the trade row as a comma-separated list.
package rulebreak

import (
	"strings"

	"tradeguard/internal/models"
)

// Code is a normalized rule-break identifier.
type Code string

const (
	PlanMissing      Code = "PLAN_MISSING"
	CloseoutMissing  Code = "CLOSEOUT_MISSING"
	MaxTradesHit     Code = "MAX_TRADES_HIT"
	MaxDailyLossHit  Code = "MAX_DAILY_LOSS_HIT"
	ConsecLossesHit  Code = "CONSEC_LOSSES_HIT"
	OverrideUsed     Code = "OVERRIDE_USED"
	TradeBlockedGate Code = "TRADE_BLOCKED_GATE"
	InvalidRiskInput Code = "INVALID_RISK_INPUT"
	Other            Code = "OTHER"
)

// All lists every code in display order.
var All = []Code{
	PlanMissing,
	CloseoutMissing,
	MaxTradesHit,
	MaxDailyLossHit,
	ConsecLossesHit,
	OverrideUsed,
	TradeBlockedGate,
	InvalidRiskInput,
	Other,
}

var labels = map[Code]string{
	PlanMissing:      "no daily plan recorded",
	CloseoutMissing:  "yesterday's closeout missing",
	MaxTradesHit:     "daily trade limit reached",
	MaxDailyLossHit:  "daily loss limit reached",
	ConsecLossesHit:  "consecutive-loss limit reached",
	OverrideUsed:     "logged during an active override",
	TradeBlockedGate: "forced past a locked gate",
	InvalidRiskInput: "risk input was not a number",
	Other:            "other rule break",
}

// aliases maps older and free-hand spellings onto the canonical set.
var aliases = map[string]Code{
	"NO_PLAN":            PlanMissing,
	"MISSING_PLAN":       PlanMissing,
	"NO_CLOSEOUT":        CloseoutMissing,
	"MISSING_CLOSEOUT":   CloseoutMissing,
	"NO_REVIEW":          CloseoutMissing,
	"OVERTRADED":         MaxTradesHit,
	"OVERTRADING":        MaxTradesHit,
	"TOO_MANY_TRADES":    MaxTradesHit,
	"MAX_LOSS":           MaxDailyLossHit,
	"MAX_LOSS_HIT":       MaxDailyLossHit,
	"DAILY_LOSS":         MaxDailyLossHit,
	"LOSS_STREAK":        ConsecLossesHit,
	"CONSECUTIVE_LOSSES": ConsecLossesHit,
	"STREAK":             ConsecLossesHit,
	"OVERRIDE":           OverrideUsed,
	"EMERGENCY_OVERRIDE": OverrideUsed,
	"FORCED":             TradeBlockedGate,
	"FORCED_TRADE":       TradeBlockedGate,
	"BLOCKED":            TradeBlockedGate,
	"BAD_RISK":           InvalidRiskInput,
	"INVALID_RISK":       InvalidRiskInput,
	"MISC":               Other,
	"UNKNOWN":            Other,
}

// Known reports whether c is one of the canonical codes.
func Known(c Code) bool {
	_, ok := labels[c]
	return ok
}

// Label returns the human-readable description for c.
func Label(c Code) string {
	if l, ok := labels[c]; ok {
		return l
	}
	return labels[Other]
}

// Normalize maps free-form input to a canonical code. Spelling variants go
// through the alias table; anything unrecognizable collapses to Other. The
// empty string stays empty so parsers can skip blank tokens.
func Normalize(s string) Code {
	n := models.NormalizeTag(s)
	if n == "" {
		return ""
	}
	c := Code(n)
	if Known(c) {
		return c
	}
	if canonical, ok := aliases[n]; ok {
		return canonical
	}
	return Other
}

// Parse converts a stored comma-separated list into canonical codes,
// de-duplicating while preserving first-seen order.
func Parse(csv string) []Code {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return Dedupe(split(csv))
}

func split(csv string) []Code {
	parts := strings.Split(csv, ",")
	out := make([]Code, 0, len(parts))
	for _, p := range parts {
		if c := Normalize(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe normalizes each code and drops repeats, keeping first-seen order.
func Dedupe(codes []Code) []Code {
	seen := make(map[Code]bool, len(codes))
	out := make([]Code, 0, len(codes))
	for _, c := range codes {
		n := Normalize(string(c))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Format renders codes to the comma-separated storage form.
func Format(codes []Code) string {
	deduped := Dedupe(codes)
	parts := make([]string, len(deduped))
	for i, c := range deduped {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// Strings converts codes to plain strings for storage on a trade row.
func Strings(codes []Code) []string {
	deduped := Dedupe(codes)
	out := make([]string, len(deduped))
	for i, c := range deduped {
		out[i] = string(c)
	}
	return out
}

// ParseList is Parse for callers that work with plain string slices.
func ParseList(csv string) []string {
	return Strings(Parse(csv))
}

// FormatList normalizes raw strings and renders the storage form.
func FormatList(raw []string) string {
	codes := make([]Code, len(raw))
	for i, r := range raw {
		codes[i] = Code(r)
	}
	return Format(codes)
}
