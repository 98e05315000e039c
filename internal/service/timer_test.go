package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopWatch_Elapsed(t *testing.T) {
	t.Run("success - elapsed freezes after stop", func(t *testing.T) {
		// arrange
		sw := NewStopWatch()
		time.Sleep(10 * time.Millisecond)

		// act
		sw.Stop()
		first := sw.Elapsed()
		time.Sleep(10 * time.Millisecond)
		second := sw.Elapsed()

		// assert
		assert.GreaterOrEqual(t, first, 10*time.Millisecond)
		assert.Equal(t, first, second)
	})
	t.Run("success - elapsed grows while running", func(t *testing.T) {
		// arrange
		sw := NewStopWatch()

		// act
		first := sw.Elapsed()
		time.Sleep(10 * time.Millisecond)
		second := sw.Elapsed()

		// assert
		assert.GreaterOrEqual(t, first, time.Duration(0))
		assert.Greater(t, second, first)
	})
}

func TestFormatDuration(t *testing.T) {
	t.Run("success - formats composite durations", func(t *testing.T) {
		assert.Equal(t, "0 seconds", FormatDuration(0))
		assert.Equal(t, "0.5 seconds", FormatDuration(500*time.Millisecond))
		assert.Equal(t, "1 second", FormatDuration(time.Second))
		assert.Equal(t, "2 minutes and 5 seconds", FormatDuration(125*time.Second))
		assert.Equal(t, "2 minutes", FormatDuration(120*time.Second))
		assert.Equal(
			t,
			"1 hour, 1 minute and 1 second",
			FormatDuration(time.Hour+time.Minute+time.Second),
		)
	})
	t.Run("success - negative durations clamp to zero", func(t *testing.T) {
		assert.Equal(t, "0 seconds", FormatDuration(-time.Second))
	})
}
