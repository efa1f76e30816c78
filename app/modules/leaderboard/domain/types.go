package leaderboarddomain

import "fmt"

// Scope selects which kind of entity a leaderboard ranks.
type Scope string

const (
	ScopeUsers  Scope = "users"
	ScopeTribes Scope = "tribes"
)

// ParseScope validates an external scope string. Case-sensitive.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeUsers, ScopeTribes:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Period selects the accumulation window of a leaderboard.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodAllTime Period = "all"
)

// ParsePeriod validates an external period string. Case-sensitive.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeekly, PeriodAllTime:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// EntityID identifies a ranked user or tribe.
type EntityID string

// Namespace names one independent ordering: a scope and period, optionally
// restricted to a country. Every namespace is a separate cache structure.
type Namespace struct {
	Scope   Scope
	Period  Period
	Country string
}

// String renders the namespace as "users:weekly" or "tribes:all:BR". It is
// the stable identity used for cache keys and log fields.
func (n Namespace) String() string {
	if n.Country != "" {
		return fmt.Sprintf("%s:%s:%s", n.Scope, n.Period, n.Country)
	}
	return fmt.Sprintf("%s:%s", n.Scope, n.Period)
}

// Entry is one scored member of a namespace ordering.
type Entry struct {
	EntityID EntityID
	Score    float64
}
