package engine

import (
	"github.com/talgya/terrace/internal/entities"
)

// Settlement: executes a chain-resolved trade. Money moves, ownership and
// occupancy transfer, ledgers are created or retired, and a transaction
// record is filed with the servicing realtors. An offer whose target has
// become invalid settles as "no match this step"; the bidder simply retries
// next step.

// settlePurchase executes a primary or buy-to-let purchase for the buyer's
// current target.
func (s *Simulation) settlePurchase(buyer *entities.Household, step uint64, m *StepMetrics) {
	target := s.Reg.Property(buyer.Target)
	if target == nil || !target.ForSale() {
		buyer.Target = 0
		return
	}
	salePrice := target.Price

	// Seller side: sale proceeds net of the outstanding mortgage, ledger
	// retired. Negative equity is absorbed, never signalled.
	if seller := s.Reg.Household(target.Owner); seller != nil {
		if i, ok := seller.Owns(target.ID); ok {
			seller.Capital += salePrice - seller.Portfolio[i].Mortgage
			if seller.Capital < 0 {
				seller.Capital = 0
			}
			seller.Portfolio = append(seller.Portfolio[:i], seller.Portfolio[i+1:]...)
		}
		if seller.Residence == target.ID {
			// Vacating seller settles their own purchase elsewhere in this
			// pass; the chain guaranteed it.
			seller.Residence = 0
		}
	}

	// Buyer side: stamp duty first, then the lesser of capital or price in
	// cash. Any shortfall becomes a mortgage at the current rate; capital
	// may reach zero but never goes negative.
	if tax := StampDuty(salePrice, s.Cfg.StampDuty); tax > 0 {
		buyer.Capital -= tax
		if buyer.Capital < 0 {
			buyer.Capital = 0
		}
	}

	ledger := entities.Ledger{Property: target.ID}
	if salePrice > buyer.Capital {
		principal := salePrice - buyer.Capital
		buyer.Capital = 0

		r := s.Cfg.RatePerStep()
		n := s.Cfg.MortgageSteps()
		ledger.Mortgage = principal
		ledger.Principal = principal
		ledger.Repayment = principal / annuityFactor(r, n)
		ledger.Rate = r
		ledger.TermLeft = n
		ledger.RateLock = s.drawRateLock(buyer.OnMarket)
	} else {
		buyer.Capital -= salePrice
		// Cash purchase: the ledger exists but records no debt.
	}

	switch buyer.OnMarket {
	case entities.SegmentPurchase:
		s.moveInAsOwner(buyer, target, ledger, step)
		m.Moves++
	case entities.SegmentBuyToLet:
		s.convertToLetting(buyer, target, ledger, step)
	}

	s.fileRecord(target, entities.RecordSale, step)
	buyer.OnMarket = entities.SegmentNone
	buyer.Target = 0
	m.Sales++
}

// drawRateLock draws a fresh rate-lock duration in steps. Primary and
// buy-to-let ledgers draw from different ranges.
func (s *Simulation) drawRateLock(seg entities.MarketSegment) int {
	if seg == entities.SegmentBuyToLet {
		return s.Rng.IntBetween(s.Cfg.MinRateLockBTL, s.Cfg.MaxRateLockBTL) * s.Cfg.TicksPerYear
	}
	return s.Rng.IntBetween(s.Cfg.MinRateLockOwner, s.Cfg.MaxRateLockOwner) * s.Cfg.TicksPerYear
}

// moveInAsOwner makes the buyer the owner-occupant of the unit. A previously
// rented residence is vacated and relisted for rent; previously owned
// holdings stay in the portfolio.
func (s *Simulation) moveInAsOwner(buyer *entities.Household, target *entities.Property, ledger entities.Ledger, step uint64) {
	if old := s.Reg.Property(buyer.Residence); old != nil && old.ID != target.ID {
		if _, owned := buyer.Owns(old.ID); !owned {
			old.Occupant = 0
			s.putOnMarket(old, step)
			if landlord := s.Reg.Household(old.Owner); landlord != nil {
				if i, ok := landlord.Owns(old.ID); ok {
					landlord.Portfolio[i].RentIncome = 0
				}
			}
		}
	}

	if occ := s.Reg.Household(target.Occupant); occ != nil && occ.ID != buyer.ID && occ.Residence == target.ID {
		occ.Residence = 0
	}

	target.Kind = entities.KindOwnedMarket
	target.Owner = buyer.ID
	target.Occupant = buyer.ID
	s.removeFromMarket(target)

	// The primary residence ledger sits at the front of the portfolio.
	buyer.Portfolio = append([]entities.Ledger{ledger}, buyer.Portfolio...)
	buyer.Residence = target.ID
	buyer.Tenure = entities.TenureOwner
	buyer.Rent = 0
	buyer.HomelessStreak = 0
	buyer.AcquiredAt = step
}

// convertToLetting flips a buy-to-let acquisition onto the rental market.
// The buyer does not occupy it; the asking rent is at least the buyer's
// repayment on the unit.
func (s *Simulation) convertToLetting(buyer *entities.Household, target *entities.Property, ledger entities.Ledger, step uint64) {
	if occ := s.Reg.Household(target.Occupant); occ != nil && occ.Residence == target.ID {
		occ.Residence = 0
	}
	target.Occupant = 0
	target.Kind = entities.KindRentalMarket
	target.Owner = buyer.ID
	s.putOnMarket(target, step)

	rent := s.valueListing(target, false)
	if rent < ledger.Repayment {
		rent = ledger.Repayment
	}
	target.RentPrice = rent

	buyer.Portfolio = append(buyer.Portfolio, ledger)
}

// settleRental executes a tenancy for the tenant's current target.
func (s *Simulation) settleRental(tenant *entities.Household, step uint64, m *StepMetrics) {
	target := s.Reg.Property(tenant.Target)
	if target == nil || !target.ForRent() {
		tenant.Target = 0
		return
	}
	rent := target.RentPrice

	if landlord := s.Reg.Household(target.Owner); landlord != nil {
		if i, ok := landlord.Owns(target.ID); ok {
			landlord.Portfolio[i].RentIncome = rent
		}
	}

	// Sitting occupant hands over; their own rental settles elsewhere in
	// this pass (or they are the chain origin).
	if occ := s.Reg.Household(target.Occupant); occ != nil && occ.ID != tenant.ID && occ.Residence == target.ID {
		occ.Residence = 0
	}

	// Vacate and relist the tenant's previous rental.
	if old := s.Reg.Property(tenant.Residence); old != nil && old.ID != target.ID {
		old.Occupant = 0
		s.putOnMarket(old, step)
		if landlord := s.Reg.Household(old.Owner); landlord != nil {
			if i, ok := landlord.Owns(old.ID); ok {
				landlord.Portfolio[i].RentIncome = 0
			}
		}
	}

	target.Occupant = tenant.ID
	s.removeFromMarket(target)

	tenant.Residence = target.ID
	tenant.Tenure = entities.TenureRenter
	tenant.Rent = rent
	tenant.HomelessStreak = 0
	tenant.AcquiredAt = step

	s.fileRecord(target, entities.RecordRent, step)
	tenant.OnMarket = entities.SegmentNone
	tenant.Target = 0
	m.Lettings++
	m.Moves++
}
