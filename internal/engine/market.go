package engine

import (
	"github.com/talgya/terrace/internal/entities"
)

// Market state transitions and eviction mechanics shared by the lifecycle,
// settlement, and demolition phases. Ownership and occupancy mutate only
// here and in settle.go.

// putOnMarket lists a property on the market matching its kind and cancels
// any pending offer.
func (s *Simulation) putOnMarket(p *entities.Property, step uint64) {
	s.cancelOffer(p)
	switch p.Kind {
	case entities.KindOwnedMarket:
		p.Listing = entities.ListedForSale
	case entities.KindRentalMarket:
		p.Listing = entities.ListedForRent
	}
	p.ListedSince = step
}

// removeFromMarket unlists a property and cancels any pending offer.
func (s *Simulation) removeFromMarket(p *entities.Property) {
	s.cancelOffer(p)
	p.Listing = entities.Unlisted
}

// cancelOffer clears a pending offer on both sides.
func (s *Simulation) cancelOffer(p *entities.Property) {
	if bidder := s.Reg.Household(p.OfferedTo); bidder != nil && bidder.Target == p.ID {
		bidder.Target = 0
	}
	p.OfferedTo = 0
	p.OfferStep = 0
}

// enterMarket places a household on a market segment.
func (s *Simulation) enterMarket(h *entities.Household, seg entities.MarketSegment) {
	h.OnMarket = seg
}

// leaveMarket withdraws a household from the market and drops its target.
func (s *Simulation) leaveMarket(h *entities.Household) {
	if target := s.Reg.Property(h.Target); target != nil && target.OfferedTo == h.ID {
		target.OfferedTo = 0
		target.OfferStep = 0
	}
	h.OnMarket = entities.SegmentNone
	h.Target = 0
}

// evict removes a household from its residence. For an owner-occupier the
// whole portfolio unwinds: every holding is force-vacated (cascading tenant
// evictions onto the rental market) and relisted unowned, and the ledgers are
// cleared. For a renter only the tenancy ends: the unit relists for rent and
// the landlord's rent income on it stops.
func (s *Simulation) evict(h *entities.Household, step uint64) {
	if h.Tenure == entities.TenureOwner {
		s.evictOwner(h, step)
		return
	}
	s.evictRenter(h, step)
}

func (s *Simulation) evictOwner(h *entities.Household, step uint64) {
	residence := s.Reg.Property(h.Residence)
	if residence != nil {
		residence.Owner = 0
		residence.Occupant = 0
		s.putOnMarket(residence, step)
	}

	for _, l := range h.Portfolio {
		p := s.Reg.Property(l.Property)
		if p == nil || (residence != nil && p.ID == residence.ID) {
			continue
		}
		if p.Kind == entities.KindRentalMarket {
			if tenant := s.Reg.Household(p.Occupant); tenant != nil && tenant.ID != h.ID {
				s.evictRenter(tenant, step)
				s.enterMarket(tenant, entities.SegmentRental)
			}
			p.Kind = entities.KindOwnedMarket
		}
		p.Owner = 0
		p.Occupant = 0
		s.putOnMarket(p, step)
	}

	h.Residence = 0
	h.Portfolio = h.Portfolio[:0]
	h.Rent = 0
	h.HomelessStreak = 0
}

func (s *Simulation) evictRenter(h *entities.Household, step uint64) {
	if unit := s.Reg.Property(h.Residence); unit != nil {
		unit.Occupant = 0
		s.putOnMarket(unit, step)
		if landlord := s.Reg.Household(unit.Owner); landlord != nil {
			if i, ok := landlord.Owns(unit.ID); ok {
				landlord.Portfolio[i].RentIncome = 0
			}
		}
	}
	h.Residence = 0
	h.Rent = 0
	h.HomelessStreak = 0
}

// forceSell makes an over-stretched multi-property owner list one non-primary
// holding for sale. A vacant rental unit is preferred (nobody to displace);
// otherwise the holding with the highest surplus (price − mortgage) is sold
// and its tenant evicted onto the rental market.
func (s *Simulation) forceSell(h *entities.Household, step uint64) {
	var vacant []*entities.Property
	for _, l := range h.Portfolio {
		p := s.Reg.Property(l.Property)
		if p == nil || p.ID == h.Residence {
			continue
		}
		if p.Kind == entities.KindRentalMarket && p.Occupant == 0 {
			vacant = append(vacant, p)
		}
	}
	if len(vacant) > 0 {
		p := vacant[s.Rng.IntN(len(vacant))]
		p.Kind = entities.KindOwnedMarket
		s.putOnMarket(p, step)
		return
	}

	bestSurplus := -1.0
	var best *entities.Property
	for _, l := range h.Portfolio {
		p := s.Reg.Property(l.Property)
		if p == nil || p.ID == h.Residence {
			continue
		}
		if surplus := p.Price - l.Mortgage; surplus > bestSurplus {
			bestSurplus = surplus
			best = p
		}
	}
	if best == nil {
		return
	}
	if tenant := s.Reg.Household(best.Occupant); tenant != nil {
		s.evictRenter(tenant, step)
		s.enterMarket(tenant, entities.SegmentRental)
	}
	best.Kind = entities.KindOwnedMarket
	s.putOnMarket(best, step)
}

// fileRecord stores a transaction record with every realtor servicing the
// property. The primary servicing agent is Realtors[0]; all local agents
// remember the transaction as a comparable.
func (s *Simulation) fileRecord(p *entities.Property, kind entities.RecordKind, step uint64) {
	rec := entities.TransactionRecord{
		Property: p.ID,
		Kind:     kind,
		Step:     step,
		Pos:      p.Pos,
	}
	switch kind {
	case entities.RecordSale:
		rec.SalePrice = p.Price
	case entities.RecordRent:
		rec.RentPrice = p.RentPrice
	}
	for _, rid := range p.Realtors {
		if rl := s.Reg.Realtor(rid); rl != nil {
			rl.Records = append(rl.Records, rec)
		}
	}
}
