package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/terrace/internal/entities"
)

func TestChainUnownedStockSellsFreely(t *testing.T) {
	s := newTestSim()
	p := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	s.putOnMarket(p, 1)

	buyer := s.Reg.AddHousehold(&entities.Household{Income: 40000, Capital: 50000})
	s.enterMarket(buyer, entities.SegmentPurchase)
	buyer.Target = p.ID

	assert.True(t, s.chainComplete(buyer))
}

func TestChainBlockedBySellerWithoutAMove(t *testing.T) {
	s := newTestSim()
	home := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	seller := s.addOwnerOccupier(home, 40000, 10000, 80000)
	s.putOnMarket(home, 1)

	buyer := s.Reg.AddHousehold(&entities.Household{Income: 40000, Capital: 50000})
	s.enterMarket(buyer, entities.SegmentPurchase)
	buyer.Target = home.ID

	// The seller occupies their only property and has no onward purchase
	// lined up, so the chain cannot settle.
	assert.Equal(t, entities.SegmentNone, seller.OnMarket)
	assert.False(t, s.chainComplete(buyer))
}

func TestChainMultiPropertySellerNeedNotRehouse(t *testing.T) {
	s := newTestSim()
	home := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	seller := s.addOwnerOccupier(home, 40000, 10000, 80000)

	second := s.addTestProperty(1, entities.KindOwnedMarket, 90000)
	second.Owner = seller.ID
	seller.Portfolio = append(seller.Portfolio, entities.Ledger{Property: second.ID})
	s.putOnMarket(second, 1)

	buyer := s.Reg.AddHousehold(&entities.Household{Income: 40000, Capital: 50000})
	s.enterMarket(buyer, entities.SegmentPurchase)
	buyer.Target = second.ID

	assert.True(t, s.chainComplete(buyer))
}

func TestChainCycleBackToOriginSettles(t *testing.T) {
	s := newTestSim()
	homeA := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	a := s.addOwnerOccupier(homeA, 40000, 10000, 80000)
	homeB := s.addTestProperty(1, entities.KindOwnedMarket, 110000)
	b := s.addOwnerOccupier(homeB, 45000, 12000, 85000)

	s.putOnMarket(homeA, 1)
	s.putOnMarket(homeB, 1)

	// A and B swap houses: each chain walk returns to its own initiator.
	s.enterMarket(a, entities.SegmentPurchase)
	a.Target = homeB.ID
	s.enterMarket(b, entities.SegmentPurchase)
	b.Target = homeA.ID

	assert.True(t, s.chainComplete(a))
	assert.True(t, s.chainComplete(b))
}

func TestChainRentalNeedsVacancyOrDeparture(t *testing.T) {
	s := newTestSim()
	homeL := s.addTestProperty(0, entities.KindOwnedMarket, 100000)
	landlord := s.addOwnerOccupier(homeL, 60000, 20000, 50000)

	unit := s.addTestProperty(1, entities.KindRentalMarket, 80000)
	sitting := s.addRenter(unit, landlord, 30000, 600)
	s.putOnMarket(unit, 1)

	tenant := s.Reg.AddHousehold(&entities.Household{Income: 35000, Tenure: entities.TenureRenter})
	s.enterMarket(tenant, entities.SegmentRental)
	tenant.Target = unit.ID

	// Sitting tenant has nowhere to go.
	assert.False(t, s.chainComplete(tenant))

	// Once the sitting tenant has a vacant unit lined up, the chain settles.
	other := s.addTestProperty(2, entities.KindRentalMarket, 80000)
	other.Owner = landlord.ID
	landlord.Portfolio = append(landlord.Portfolio, entities.Ledger{Property: other.ID})
	s.putOnMarket(other, 1)
	s.enterMarket(sitting, entities.SegmentRental)
	sitting.Target = other.ID

	assert.True(t, s.chainComplete(tenant))
}

func TestChainTerminatesOnLongCycle(t *testing.T) {
	s := newTestSim()

	// Ring of owner-occupiers, each bidding on the next one's home. The
	// walk must terminate and every chain resolves through the cycle rule.
	const n = 6
	homes := make([]*entities.Property, n)
	hhs := make([]*entities.Household, n)
	for i := 0; i < n; i++ {
		homes[i] = s.addTestProperty(i, entities.KindOwnedMarket, 100000)
		hhs[i] = s.addOwnerOccupier(homes[i], 40000, 10000, 80000)
		s.putOnMarket(homes[i], 1)
	}
	for i := 0; i < n; i++ {
		s.enterMarket(hhs[i], entities.SegmentPurchase)
		hhs[i].Target = homes[(i+1)%n].ID
	}

	for i := 0; i < n; i++ {
		assert.True(t, s.chainComplete(hhs[i]), "household %d", i)
	}
}
