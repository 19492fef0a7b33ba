package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after), "now %v outside [%v, %v]", got, before, after)
}

func TestClockSinceNonNegative(t *testing.T) {
	t.Parallel()

	clk := New()
	start := clk.Now()
	assert.GreaterOrEqual(t, clk.Since(start), time.Duration(0))
	assert.GreaterOrEqual(t, clk.Since(start.Add(-time.Minute)), time.Minute)
}
