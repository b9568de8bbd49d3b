package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayAndPrevDay(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-01", Day(now))
	assert.Equal(t, "2026-08-31", PrevDay(now), "crosses the month boundary")
}

func TestSlot(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 7, 59, 0, time.UTC)
	assert.Equal(t, "09:07", Slot(now))
}

func TestValidSlot(t *testing.T) {
	assert.True(t, ValidSlot("10:30"))
	assert.True(t, ValidSlot("00:00"))
	assert.False(t, ValidSlot("25:99"))
	assert.False(t, ValidSlot("10:30:00"))
	assert.False(t, ValidSlot("noon"))
}

func TestDuration(t *testing.T) {
	d, err := Duration("2026-09-01T10:00:00Z", "2026-09-01T12:30:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Hour+30*time.Minute, d)

	_, err = Duration("not-a-time", "2026-09-01T12:30:00Z")
	assert.Error(t, err)
}
