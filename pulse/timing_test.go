package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"
)

func TestTimingFor(t *testing.T) {
	tm := TimingFor(DefaultFrequency)
	assert.Equal(t, 400*time.Nanosecond, tm.T0H)
	assert.Equal(t, 800*time.Nanosecond, tm.T0L)
	assert.Equal(t, 800*time.Nanosecond, tm.T1H)
	assert.Equal(t, 400*time.Nanosecond, tm.T1L)
}

func TestTimingValidate(t *testing.T) {
	tests := []struct {
		freq physic.Frequency
		ok   bool
	}{
		{DefaultFrequency, true},
		{2400 * physic.KiloHertz, true},
		{2800 * physic.KiloHertz, true},
		{3200 * physic.KiloHertz, false},
		{2 * physic.MegaHertz, false},
		{800 * physic.KiloHertz, false},
		{0, false},
	}

	for _, test := range tests {
		t.Run(test.freq.String(), func(t *testing.T) {
			err := TimingFor(test.freq).Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrTiming)
			}
		})
	}
}
