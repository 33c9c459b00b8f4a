package mediacache

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestKeyLimiterWindow(t *testing.T) {
	clock := newManualClock()
	l := NewKeyLimiter(time.Second, clock.Now)

	assert.True(t, l.Allow("0xabc"))
	assert.False(t, l.Allow("0xabc"))
	assert.True(t, l.Allow("0xdef"), "keys are limited independently")

	clock.Advance(time.Second)
	assert.True(t, l.Allow("0xabc"))
}

func TestKeyLimiterSweep(t *testing.T) {
	clock := newManualClock()
	l := NewKeyLimiter(time.Second, clock.Now)

	l.Allow("a")
	clock.Advance(500 * time.Millisecond)
	l.Allow("b")
	clock.Advance(600 * time.Millisecond)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestKeyLimiterTwoRequestsInsideWindow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one of two requests within the window is limited", prop.ForAll(
		func(key string, gapMs int) bool {
			clock := newManualClock()
			l := NewKeyLimiter(time.Second, clock.Now)

			first := l.Allow(key)
			clock.Advance(time.Duration(gapMs) * time.Millisecond)
			second := l.Allow(key)

			return first && !second
		},
		gen.AlphaString(),
		gen.IntRange(0, 999),
	))

	properties.Property("requests a full window apart are both admitted", prop.ForAll(
		func(key string, gapMs int) bool {
			clock := newManualClock()
			l := NewKeyLimiter(time.Second, clock.Now)

			first := l.Allow(key)
			clock.Advance(time.Duration(gapMs) * time.Millisecond)
			return first && l.Allow(key)
		},
		gen.AlphaString(),
		gen.IntRange(1000, 5000),
	))

	properties.TestingRun(t)
}
