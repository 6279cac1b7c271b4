package clock

import (
	"testing"
	"time"
)

func TestFixed_Advance(t *testing.T) {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	c.Advance(59 * time.Minute)

	if got := c.Now(); !got.Equal(start.Add(59 * time.Minute)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(59*time.Minute))
	}
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	if got.Before(before) {
		t.Errorf("System.Now() = %v は呼び出し前の時刻 %v より前であってはならない", got, before)
	}
}
