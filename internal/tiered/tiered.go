// Package tiered looks a record up across an ordered list of stores.
//
// Tiers are tried in order. A hit ends the lookup. A not-found answer from an
// eventually consistent tier moves on to the next tier; the same answer from an
// authoritative tier ends the lookup. Any other error ends the lookup and is
// returned unchanged.
package tiered

import (
	"context"
	"errors"
)

// ErrNoTiers is returned when every tier was skipped.
var ErrNoTiers = errors.New("tiered: no enabled tiers")

// Consistency says what a tier's not-found answer means.
type Consistency int

const (
	// EventuallyConsistent tiers may not hold a record that exists elsewhere yet.
	EventuallyConsistent Consistency = iota
	// Authoritative tiers are the source of truth.
	Authoritative
)

func (c Consistency) String() string {
	if c == Authoritative {
		return "authoritative"
	}
	return "eventually_consistent"
}

// Outcome is how a single tier answered.
type Outcome string

const (
	OutcomeHit     Outcome = "hit"
	OutcomeMiss    Outcome = "miss"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// Tier is one lookup strategy.
type Tier[Q, R any] struct {
	Name        string
	Consistency Consistency
	Disabled    bool
	Fetch       func(ctx context.Context, q Q) (R, error)
}

// Lookup runs a query against its tiers.
type Lookup[Q, R any] struct {
	tiers      []Tier[Q, R]
	isNotFound func(error) bool
	observe    func(tier string, outcome Outcome)
}

// New builds a Lookup. isNotFound classifies errors that let an eventually
// consistent tier fall through to the next one.
func New[Q, R any](isNotFound func(error) bool, tiers ...Tier[Q, R]) *Lookup[Q, R] {
	return &Lookup[Q, R]{
		tiers:      tiers,
		isNotFound: isNotFound,
	}
}

// OnOutcome registers a callback invoked once per consulted or skipped tier.
func (l *Lookup[Q, R]) OnOutcome(fn func(tier string, outcome Outcome)) *Lookup[Q, R] {
	l.observe = fn
	return l
}

// Get runs q against the tiers in order. Tiers are consulted sequentially.
func (l *Lookup[Q, R]) Get(ctx context.Context, q Q) (R, error) {
	var zero R
	var lastMiss error

	for _, tier := range l.tiers {
		if tier.Disabled {
			l.report(tier.Name, OutcomeSkipped)
			continue
		}

		res, err := tier.Fetch(ctx, q)
		if err == nil {
			l.report(tier.Name, OutcomeHit)
			return res, nil
		}
		if !l.isNotFound(err) {
			l.report(tier.Name, OutcomeError)
			return zero, err
		}

		l.report(tier.Name, OutcomeMiss)
		lastMiss = err
		if tier.Consistency == Authoritative {
			return zero, err
		}
	}

	if lastMiss != nil {
		return zero, lastMiss
	}
	return zero, ErrNoTiers
}

func (l *Lookup[Q, R]) report(tier string, outcome Outcome) {
	if l.observe != nil {
		l.observe(tier, outcome)
	}
}
