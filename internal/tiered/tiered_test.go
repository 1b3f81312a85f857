package tiered

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

func isMissing(err error) bool { return errors.Is(err, errMissing) }

type recorder struct {
	calls []string
	seen  []string
}

func (r *recorder) tier(name string, c Consistency, res string, err error) Tier[string, string] {
	return Tier[string, string]{
		Name:        name,
		Consistency: c,
		Fetch: func(_ context.Context, q string) (string, error) {
			r.calls = append(r.calls, name+":"+q)
			return res, err
		},
	}
}

func TestGetReturnsFirstHit(t *testing.T) {
	rec := &recorder{}
	l := New(isMissing,
		rec.tier("primary", EventuallyConsistent, "from-primary", nil),
		rec.tier("legacy", Authoritative, "from-legacy", nil),
	)

	got, err := l.Get(context.Background(), "obs-1")
	require.NoError(t, err)
	assert.Equal(t, "from-primary", got)
	assert.Equal(t, []string{"primary:obs-1"}, rec.calls)
}

func TestGetFallsThroughOnNotFound(t *testing.T) {
	rec := &recorder{}
	l := New(isMissing,
		rec.tier("primary", EventuallyConsistent, "", errMissing),
		rec.tier("legacy", Authoritative, "from-legacy", nil),
	)

	got, err := l.Get(context.Background(), "obs-1")
	require.NoError(t, err)
	assert.Equal(t, "from-legacy", got)
	assert.Equal(t, []string{"primary:obs-1", "legacy:obs-1"}, rec.calls)
}

func TestGetStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	rec := &recorder{}
	l := New(isMissing,
		rec.tier("primary", EventuallyConsistent, "", boom),
		rec.tier("legacy", Authoritative, "from-legacy", nil),
	)

	_, err := l.Get(context.Background(), "obs-1")
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"primary:obs-1"}, rec.calls)
}

func TestGetStopsAtAuthoritativeMiss(t *testing.T) {
	rec := &recorder{}
	l := New(isMissing,
		rec.tier("legacy", Authoritative, "", errMissing),
		rec.tier("archive", EventuallyConsistent, "from-archive", nil),
	)

	_, err := l.Get(context.Background(), "obs-1")
	assert.ErrorIs(t, err, errMissing)
	assert.Equal(t, []string{"legacy:obs-1"}, rec.calls)
}

func TestGetSkipsDisabledTiers(t *testing.T) {
	rec := &recorder{}
	primary := rec.tier("primary", EventuallyConsistent, "from-primary", nil)
	primary.Disabled = true

	var outcomes []string
	l := New(isMissing, primary, rec.tier("legacy", Authoritative, "from-legacy", nil)).
		OnOutcome(func(tier string, o Outcome) {
			outcomes = append(outcomes, tier+"="+string(o))
		})

	got, err := l.Get(context.Background(), "obs-1")
	require.NoError(t, err)
	assert.Equal(t, "from-legacy", got)
	assert.Equal(t, []string{"legacy:obs-1"}, rec.calls)
	assert.Equal(t, []string{"primary=skipped", "legacy=hit"}, outcomes)
}

func TestGetAllMissesReturnsLastMiss(t *testing.T) {
	rec := &recorder{}
	l := New(isMissing,
		rec.tier("a", EventuallyConsistent, "", errMissing),
		rec.tier("b", EventuallyConsistent, "", errMissing),
	)

	_, err := l.Get(context.Background(), "x")
	assert.ErrorIs(t, err, errMissing)
	assert.Len(t, rec.calls, 2)
}

func TestGetNoEnabledTiers(t *testing.T) {
	l := New[string, string](isMissing)
	_, err := l.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoTiers)
}
