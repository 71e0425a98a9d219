// Package entities provides the housing-market data model and the owning
// registry for properties, households, and realtors.
package entities

import (
	"github.com/paulmach/orb"
)

// PropertyID identifies a property. Zero means "no property".
type PropertyID uint64

// HouseholdID identifies a household. Zero means "no household".
type HouseholdID uint64

// RealtorID identifies a realtor. Zero means "no realtor".
type RealtorID uint64

// PropertyKind is the market a property belongs to. A property can flip kind:
// a buy-to-let purchase converts an owned-market unit to the rental market.
type PropertyKind uint8

const (
	KindOwnedMarket  PropertyKind = 0
	KindRentalMarket PropertyKind = 1
)

// ListingState tracks whether and how a property is on the market.
type ListingState uint8

const (
	Unlisted      ListingState = 0
	ListedForSale ListingState = 1
	ListedForRent ListingState = 2
)

// MarketSegment is the market a household participates in.
type MarketSegment uint8

const (
	SegmentNone     MarketSegment = 0
	SegmentPurchase MarketSegment = 1 // buying a primary residence
	SegmentBuyToLet MarketSegment = 2 // buying a unit to let out
	SegmentRental   MarketSegment = 3 // renting
)

// Tenure is a household's current housing arrangement.
type Tenure uint8

const (
	TenureOwner  Tenure = 0
	TenureRenter Tenure = 1
)

// Property is a single housing unit on one plot.
type Property struct {
	ID      PropertyID   `json:"id"`
	Kind    PropertyKind `json:"kind"`
	Listing ListingState `json:"listing"`

	// ListedSince is the step the property entered its current listing.
	ListedSince uint64 `json:"listed_since"`

	Price     float64 `json:"price"`      // sale price (asking while listed)
	RentPrice float64 `json:"rent_price"` // rent per step
	Quality   float64 `json:"quality"`    // relative quality index, 0.3–3.0

	Owner    HouseholdID `json:"owner,omitempty"`
	Occupant HouseholdID `json:"occupant,omitempty"` // differs from Owner when rented

	// At most one pending offer at a time.
	OfferedTo HouseholdID `json:"offered_to,omitempty"`
	OfferStep uint64      `json:"offer_step,omitempty"`

	// Servicing realtors. Realtors[0] is the primary servicing agent that
	// files transaction records for this unit.
	Realtors []RealtorID `json:"realtors"`

	// EndOfLife is the step at which demolition is scheduled, drawn once at
	// creation.
	EndOfLife uint64 `json:"end_of_life"`

	Pos orb.Point `json:"pos"`
}

// ForSale reports whether the property is currently listed for sale.
func (p *Property) ForSale() bool { return p.Listing == ListedForSale }

// ForRent reports whether the property is currently listed for rent.
func (p *Property) ForRent() bool { return p.Listing == ListedForRent }

// Ledger is the per-owned-property financial record, stored in the owner's
// portfolio alongside the property handle it covers.
type Ledger struct {
	Property   PropertyID `json:"property"`
	Mortgage   float64    `json:"mortgage"`    // outstanding balance
	Principal  float64    `json:"principal"`   // original mortgage
	TermLeft   int        `json:"term_left"`   // remaining steps on the mortgage
	Rate       float64    `json:"rate"`        // per-step interest rate
	RateLock   int        `json:"rate_lock"`   // steps until the rate may reset
	Repayment  float64    `json:"repayment"`   // per-step repayment
	RentIncome float64    `json:"rent_income"` // rent collected on this unit, 0 if vacant/owner-occupied
}

// Household is a resident economic unit that owns or rents property.
type Household struct {
	ID        HouseholdID `json:"id"`
	Residence PropertyID  `json:"residence,omitempty"`

	// Portfolio holds one ledger per owned property, ordered; index 0 is the
	// primary residence when the household is an owner-occupier. A renter's
	// portfolio is always empty.
	Portfolio []Ledger `json:"portfolio"`

	Income  float64 `json:"income"`  // annual, before tax
	Capital float64 `json:"capital"` // liquid savings
	Surplus float64 `json:"surplus"` // per-step residual income after housing costs
	Rent    float64 `json:"rent"`    // per-step rent currently paid (renters)

	Tenure    Tenure        `json:"tenure"`
	OnMarket  MarketSegment `json:"on_market"`
	Target    PropertyID    `json:"target,omitempty"` // property this household has an offer on
	AcquiredAt uint64       `json:"acquired_at,omitempty"`

	// InvestmentPropensity is fixed at creation and gates discretionary
	// market entry.
	InvestmentPropensity float64 `json:"investment_propensity"`

	// HomelessStreak counts consecutive steps without a residence.
	HomelessStreak int `json:"homeless_streak"`
}

// Owns reports whether the household holds a ledger for the given property,
// returning its portfolio index.
func (h *Household) Owns(id PropertyID) (int, bool) {
	for i, l := range h.Portfolio {
		if l.Property == id {
			return i, true
		}
	}
	return -1, false
}

// TotalRepayment is the household's per-step repayment across all ledgers.
func (h *Household) TotalRepayment() float64 {
	var sum float64
	for _, l := range h.Portfolio {
		sum += l.Repayment
	}
	return sum
}

// TotalRentIncome is the household's per-step rent income across all ledgers.
func (h *Household) TotalRentIncome() float64 {
	var sum float64
	for _, l := range h.Portfolio {
		sum += l.RentIncome
	}
	return sum
}

// RecordKind distinguishes sale from rental transaction records.
type RecordKind uint8

const (
	RecordSale RecordKind = 0
	RecordRent RecordKind = 1
)

// TransactionRecord is a realtor's memory of one transaction. Purged when
// older than the realtor's memory horizon or when its property is demolished.
type TransactionRecord struct {
	Property  PropertyID `json:"property"`
	Kind      RecordKind `json:"kind"`
	SalePrice float64    `json:"sale_price"`
	RentPrice float64    `json:"rent_price"`
	Step      uint64     `json:"step"`
	Pos       orb.Point  `json:"pos"`
}

// Realtor is an estate agent with a fixed territory and a bounded
// transaction memory.
type Realtor struct {
	ID  RealtorID `json:"id"`
	Pos orb.Point `json:"pos"`

	// Records within the memory horizon, both sales and rentals.
	Records []TransactionRecord `json:"records"`

	// Running averages over current listings in the territory, refreshed at
	// the start of each step. The valuation fallback when no comparables and
	// no local listings exist.
	AvgPrice float64 `json:"avg_price"`
	AvgRent  float64 `json:"avg_rent"`
}
