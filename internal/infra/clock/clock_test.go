package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedToday(t *testing.T) {
	c := NewFixed(time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), c.Today())

	c.Advance(time.Hour)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), c.Today())
}

func TestSystemRejectsUnknownZone(t *testing.T) {
	_, err := NewSystem("Mars/Olympus")
	assert.Error(t, err)

	s, err := NewSystem("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Location)
	assert.Equal(t, 0, s.Today().Hour())
}
