package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStampDutyTiers(t *testing.T) {
	assert.Equal(t, 0.0, StampDuty(100000, true))
	assert.Equal(t, 0.0, StampDuty(150000, true))
	assert.Equal(t, 2000.0, StampDuty(200000, true))
	assert.Equal(t, 2500.0, StampDuty(250000, true))
	assert.Equal(t, 6000.0, StampDuty(300000, true))
	assert.Equal(t, 10000.0, StampDuty(500000, true))
	assert.Equal(t, 24000.0, StampDuty(600000, true))
}

func TestStampDutyDisabled(t *testing.T) {
	assert.Equal(t, 0.0, StampDuty(600000, false))
}

func TestStampDutyAppliesToWholePrice(t *testing.T) {
	// The rate applies to the full price, not marginally per band: crossing
	// a band boundary jumps the tax.
	below := StampDuty(250000, true)
	above := StampDuty(250001, true)
	assert.Greater(t, above, below*1.9)
}
