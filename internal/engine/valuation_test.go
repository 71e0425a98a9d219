package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/terrace/internal/entities"
)

func TestValuationDampsUpwardMoves(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	s.putOnMarket(p, 1)

	// The only appraisal source is the realtor's running average, far above
	// the current price: the move is capped at twice the old price before
	// the quality/optimism multiplier.
	s.Reg.Realtors[0].AvgPrice = 1000000

	want := 100000 * 2.0 * (1 + s.Cfg.RealtorOptimism/100)
	assert.InDelta(t, want, s.valueListing(p, true), 1e-6)
}

func TestValuationDampsDownwardMoves(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	s.putOnMarket(p, 1)

	s.Reg.Realtors[0].AvgPrice = 10000

	want := 100000 * 0.5 * (1 + s.Cfg.RealtorOptimism/100)
	assert.InDelta(t, want, s.valueListing(p, true), 1e-6)
}

func TestValuationBelowFloorAcceptsAppraisal(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 0)
	s.putOnMarket(p, 1)

	// A price below the floor carries no signal; the appraisal is taken
	// without damping.
	s.Reg.Realtors[0].AvgPrice = 90000

	want := 90000 * (1 + s.Cfg.RealtorOptimism/100)
	assert.InDelta(t, want, s.valueListing(p, true), 1e-6)
}

func TestValuationPrefersLocalComparables(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 0)
	s.putOnMarket(p, 1)

	rl := s.Reg.Realtors[0]
	rl.AvgPrice = 500000
	rl.Records = []entities.TransactionRecord{
		{Property: 99, Kind: entities.RecordSale, SalePrice: 120000, Step: 1, Pos: p.Pos},
		{Property: 98, Kind: entities.RecordSale, SalePrice: 140000, Step: 1, Pos: p.Pos},
		{Property: 97, Kind: entities.RecordRent, RentPrice: 700, Step: 1, Pos: p.Pos},
	}

	// Median of the two sale comparables, not the running average.
	want := 130000 * (1 + s.Cfg.RealtorOptimism/100)
	assert.InDelta(t, want, s.valueListing(p, true), 1e-6)
}

func TestQualityTracksRelativePrice(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 0)
	s.addTestProperty(1, entities.KindOwnedMarket, 100000)
	s.addTestProperty(2, entities.KindOwnedMarket, 100000)

	s.updateQuality(p, 150000)
	assert.InDelta(t, 1.5, p.Quality, 1e-6)

	// Clamped at both ends.
	s.updateQuality(p, 1000000)
	assert.Equal(t, 3.0, p.Quality)
	s.updateQuality(p, 1000)
	assert.Equal(t, 0.3, p.Quality)
}
