package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()
	p1 := r.AddProperty(&Property{})
	p2 := r.AddProperty(&Property{})
	h := r.AddHousehold(&Household{})

	assert.Equal(t, PropertyID(1), p1.ID)
	assert.Equal(t, PropertyID(2), p2.ID)
	assert.Equal(t, HouseholdID(1), h.ID)

	assert.Same(t, p1, r.Property(p1.ID))
	assert.Same(t, h, r.Household(h.ID))
	assert.Nil(t, r.Property(0))
	assert.Nil(t, r.Property(99))
}

func TestRemovePropertyClearsBackReferences(t *testing.T) {
	r := NewRegistry()
	rl := r.AddRealtor(&Realtor{})
	p := r.AddProperty(&Property{Realtors: []RealtorID{rl.ID}})
	rl.Records = append(rl.Records,
		TransactionRecord{Property: p.ID, Kind: RecordSale, SalePrice: 1000},
		TransactionRecord{Property: 999, Kind: RecordSale, SalePrice: 2000},
	)

	owner := r.AddHousehold(&Household{
		Residence: p.ID,
		Portfolio: []Ledger{{Property: p.ID, Mortgage: 500}},
	})
	p.Owner = owner.ID
	p.Occupant = owner.ID

	bidder := r.AddHousehold(&Household{Target: p.ID})
	p.OfferedTo = bidder.ID

	r.RemoveProperty(p.ID)

	assert.Nil(t, r.Property(p.ID))
	assert.Zero(t, owner.Residence)
	assert.Empty(t, owner.Portfolio)
	assert.Zero(t, bidder.Target)
	require.Len(t, rl.Records, 1)
	assert.Equal(t, PropertyID(999), rl.Records[0].Property)
}

func TestRemoveHouseholdClearsBackReferences(t *testing.T) {
	r := NewRegistry()
	p := r.AddProperty(&Property{})
	h := r.AddHousehold(&Household{
		Residence: p.ID,
		Portfolio: []Ledger{{Property: p.ID}},
	})
	p.Owner = h.ID
	p.Occupant = h.ID

	other := r.AddProperty(&Property{OfferedTo: h.ID, OfferStep: 3})

	r.RemoveHousehold(h.ID)

	assert.Nil(t, r.Household(h.ID))
	assert.Zero(t, p.Owner)
	assert.Zero(t, p.Occupant)
	assert.Zero(t, other.OfferedTo)
	assert.Zero(t, other.OfferStep)
}

func TestAdoptKeepsIdentitiesAndBumpsCounters(t *testing.T) {
	r := NewRegistry()
	r.AdoptProperty(&Property{ID: 7})
	r.AdoptHousehold(&Household{ID: 3})
	r.AdoptRealtor(&Realtor{ID: 2})

	assert.NotNil(t, r.Property(7))
	assert.NotNil(t, r.Household(3))
	assert.NotNil(t, r.Realtor(2))

	p := r.AddProperty(&Property{})
	h := r.AddHousehold(&Household{})
	rl := r.AddRealtor(&Realtor{})
	assert.Equal(t, PropertyID(8), p.ID)
	assert.Equal(t, HouseholdID(4), h.ID)
	assert.Equal(t, RealtorID(3), rl.ID)
}

func TestHouseholdLedgerHelpers(t *testing.T) {
	h := &Household{Portfolio: []Ledger{
		{Property: 1, Repayment: 100, RentIncome: 0},
		{Property: 2, Repayment: 50, RentIncome: 80},
	}}

	i, ok := h.Owns(2)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = h.Owns(3)
	assert.False(t, ok)

	assert.Equal(t, 150.0, h.TotalRepayment())
	assert.Equal(t, 80.0, h.TotalRentIncome())
}
