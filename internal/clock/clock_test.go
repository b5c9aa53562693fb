package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "time/tzdata"
)

func TestNewLocal(t *testing.T) {
	c, err := NewLocal("America/La_Paz")
	require.NoError(t, err)
	require.Equal(t, "America/La_Paz", c.Now().Location().String())

	_, offset := c.Now().Zone()
	require.Equal(t, -4*3600, offset)
}

func TestNewLocal_EmptyIsUTC(t *testing.T) {
	c, err := NewLocal("")
	require.NoError(t, err)
	require.Equal(t, time.UTC, c.Location())
}

func TestNewLocal_Unknown(t *testing.T) {
	_, err := NewLocal("Mars/Olympus_Mons")
	require.Error(t, err)
}

func TestFixed(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewFixed(base)
	require.Equal(t, base, c.Now())

	c.Advance(90 * time.Minute)
	require.Equal(t, base.Add(90*time.Minute), c.Now())

	c.Set(base)
	require.Equal(t, base, c.Now())
}
