package engine

import (
	"github.com/paulmach/orb"

	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/town"
)

// Lifecycle: population turnover, income shocks, distress screening,
// construction, and the end-of-step bookkeeping (record purge, offer sweep,
// demolition, price decay, amortization).

// managePopulation handles random exit, random entry, and discouragement of
// long-term homeless households.
func (s *Simulation) managePopulation(step uint64, m *StepMetrics) {
	// Exit: a rate-proportional sample of housed households leaves the city.
	// An owner-occupier's exit unwinds the whole portfolio.
	var housed []*entities.Household
	for _, h := range s.Reg.Households {
		if h.Residence != 0 {
			housed = append(housed, h)
		}
	}
	nExit := int(float64(len(s.Reg.Households)) * s.Cfg.ExitRate / 100)
	if nExit > len(housed) {
		nExit = len(housed)
	}
	if nExit > 0 {
		for _, i := range s.Rng.Sample(len(housed), nExit) {
			h := housed[i]
			// A cascading eviction earlier in this loop may have already
			// unhoused this household.
			if h.Residence != 0 {
				s.evict(h, step)
			}
			s.Reg.RemoveHousehold(h.ID)
			m.NaturalExit++
		}
	}

	// Entry: newcomers arrive homeless and go straight onto a market.
	nEnter := int(float64(len(s.Reg.Households)) * s.Cfg.EntryRate / 100)
	for i := 0; i < nEnter; i++ {
		income := s.Rng.Normal(s.Cfg.MeanIncome, s.Cfg.MeanIncome/6)
		if income < 0 {
			income = 0
		}
		h := &entities.Household{
			Income:               income,
			Surplus:              income / float64(s.Cfg.TicksPerYear),
			Tenure:               entities.TenureRenter,
			InvestmentPropensity: s.Rng.Float(),
		}
		if s.Rng.Float() < 0.5 {
			h.Capital = income * s.Cfg.CapitalOwner / 100
			s.Reg.AddHousehold(h)
			s.enterMarket(h, entities.SegmentPurchase)
		} else {
			h.Capital = income * s.Cfg.CapitalRenter / 100
			s.Reg.AddHousehold(h)
			s.enterMarket(h, entities.SegmentRental)
		}
		m.Entries++
	}

	// Homelessness: count the streak and drop households that stayed homeless
	// past the tolerance. They leave the city discouraged.
	var discouraged []*entities.Household
	for _, h := range s.Reg.Households {
		if h.Residence != 0 {
			continue
		}
		h.HomelessStreak++
		m.Homeless++
		if h.HomelessStreak > s.Cfg.MaxHomelessPeriod {
			discouraged = append(discouraged, h)
		}
	}
	for _, h := range discouraged {
		m.Discouraged++
		switch h.OnMarket {
		case entities.SegmentPurchase:
			m.DiscouragedPurchase++
		case entities.SegmentBuyToLet:
			m.DiscouragedBuyToLet++
		case entities.SegmentRental:
			m.DiscouragedRental++
		}
		s.Reg.RemoveHousehold(h.ID)
	}
}

// applyIncomeShocks shifts a random share of incomes by the shock magnitude
// at each shock interval. With the behavioral response enabled, up-shocked
// owners chase a buy-to-let purchase and down-shocked owners lose their
// home and fall back onto the rental market.
func (s *Simulation) applyIncomeShocks(step uint64, m *StepMetrics) {
	if s.Cfg.ShockInterval <= 0 || int(step)%s.Cfg.ShockInterval != 0 {
		return
	}
	n := int(float64(len(s.Reg.Households)) * s.Cfg.ShockShare / 100)
	if n <= 0 {
		return
	}

	shocked := make([]*entities.Household, 0, n)
	for _, i := range s.Rng.Sample(len(s.Reg.Households), n) {
		shocked = append(shocked, s.Reg.Households[i])
	}
	for _, h := range shocked {
		if s.Rng.Float() < 0.5 {
			h.Income *= 1 + s.Cfg.ShockMagnitude/100
			m.Upshocked++
			if s.Cfg.ShockResponse && h.Tenure == entities.TenureOwner && h.Residence != 0 && h.OnMarket == entities.SegmentNone {
				s.enterMarket(h, entities.SegmentBuyToLet)
			}
		} else {
			h.Income *= 1 - s.Cfg.ShockMagnitude/100
			m.Downshocked++
			if s.Cfg.ShockResponse && h.Tenure == entities.TenureOwner && h.Residence != 0 && h.OnMarket == entities.SegmentNone {
				s.evict(h, step)
				s.enterMarket(h, entities.SegmentRental)
			}
		}
	}
}

// screenParticipation evaluates every housed household not already on a
// market: the over-stretched are evicted or forced to sell, the well-off are
// routed toward buy-to-let or an upgrade move.
func (s *Simulation) screenParticipation(step uint64, m *StepMetrics) {
	tpy := float64(s.Cfg.TicksPerYear)
	afford := s.Cfg.Affordability / 100

	var poorOwners, poorRenters []*entities.Household
	poor := make(map[entities.HouseholdID]bool)
	for _, h := range s.Reg.Households {
		if h.Residence == 0 || h.OnMarket != entities.SegmentNone {
			continue
		}
		switch h.Tenure {
		case entities.TenureOwner:
			burden := h.TotalRepayment() * tpy
			cover := s.Cfg.EvictionThresholdMortgage * (h.Income + h.TotalRentIncome()*tpy) * afford
			if burden > cover {
				poorOwners = append(poorOwners, h)
				poor[h.ID] = true
			}
		case entities.TenureRenter:
			if h.Rent*tpy > s.Cfg.EvictionThresholdRent*h.Income*afford {
				poorRenters = append(poorRenters, h)
				poor[h.ID] = true
			}
		}
	}
	m.PoorOwners = uint64(len(poorOwners))

	var evictedIncomes []float64
	for _, h := range poorOwners {
		if len(h.Portfolio) <= 1 {
			evictedIncomes = append(evictedIncomes, h.Income)
			s.evict(h, step)
			s.enterMarket(h, entities.SegmentRental)
			m.EvictedOwners++
			m.EnterRental++
			continue
		}
		// A multi-property owner with a holding already listed is waiting on
		// that sale; only owners with nothing listed are forced to sell.
		listed := false
		for _, l := range h.Portfolio {
			if p := s.Reg.Property(l.Property); p != nil && p.Listing != entities.Unlisted {
				listed = true
				break
			}
		}
		if !listed {
			s.forceSell(h, step)
			m.ForcedSales++
		}
	}
	for _, h := range poorRenters {
		evictedIncomes = append(evictedIncomes, h.Income)
		s.evict(h, step)
		s.enterMarket(h, entities.SegmentRental)
		m.EvictedRenters++
		m.EnterRental++
	}
	m.MeanIncomeEvicted = mean(evictedIncomes)

	for _, h := range s.Reg.Households {
		if h.Residence == 0 || h.OnMarket != entities.SegmentNone || poor[h.ID] {
			continue
		}
		switch h.Tenure {
		case entities.TenureOwner:
			if s.richOwner(h, tpy, afford) && h.InvestmentPropensity >= 1-s.Cfg.InvestorShare/100 {
				s.enterMarket(h, entities.SegmentBuyToLet)
				m.EnterBuyToLet++
			}
		case entities.TenureRenter:
			if !s.richRenter(h, afford) {
				continue
			}
			if h.InvestmentPropensity >= 1-s.Cfg.UpgradeTenancy/100 {
				s.enterMarket(h, entities.SegmentRental)
				m.EnterRental++
			} else {
				s.enterMarket(h, entities.SegmentPurchase)
				m.EnterPurchase++
			}
		}
	}
}

// richOwner reports whether an owner has both the deposit and the headroom
// for another mortgage, measured against its own typical ledger.
func (s *Simulation) richOwner(h *entities.Household, tpy, afford float64) bool {
	if len(h.Portfolio) == 0 {
		return false
	}
	var mortgages, repayments []float64
	for _, l := range h.Portfolio {
		mortgages = append(mortgages, l.Mortgage)
		repayments = append(repayments, l.Repayment)
	}
	deposit := median(mortgages) * (1 - s.Cfg.MaxLTV/100)
	if h.Capital <= deposit {
		return false
	}
	headroom := (h.Income + h.TotalRentIncome()*tpy - h.TotalRepayment()*tpy) * afford
	return headroom > median(repayments)*tpy
}

// richRenter reports whether a renter could finance buying a home like the
// one it currently rents.
func (s *Simulation) richRenter(h *entities.Household, afford float64) bool {
	res := s.Reg.Property(h.Residence)
	if res == nil || res.Price <= 0 {
		return false
	}
	deposit := s.Cfg.SavingsThreshold * res.Price * (1 - s.Cfg.MaxLTV/100)
	if h.Capital <= deposit {
		return false
	}
	repayment := res.Price * (s.Cfg.MaxLTV / 100) / annuityFactor(s.Cfg.RatePerStep(), s.Cfg.MortgageSteps())
	return h.Income*afford > repayment
}

// constructProperties builds new owned-market stock on vacant plots and lists
// it for sale.
func (s *Simulation) constructProperties(step uint64, m *StepMetrics) {
	n := int(float64(len(s.Reg.Properties)) * s.Cfg.ConstructionRate / 100)
	if n <= 0 {
		return
	}

	var vacant []int
	for i := 0; i < s.Grid.Plots(); i++ {
		if _, taken := s.plotTaken[i]; !taken {
			vacant = append(vacant, i)
		}
	}
	if len(vacant) == 0 {
		return
	}
	if n > len(vacant) {
		n = len(vacant)
	}

	for _, vi := range s.Rng.Sample(len(vacant), n) {
		plot := vacant[vi]
		p := &entities.Property{
			Kind:      entities.KindOwnedMarket,
			Quality:   s.neighborhoodQuality(s.Grid.Point(plot)),
			EndOfLife: step + uint64(s.Rng.Exponential(float64(s.Cfg.HouseMeanLifetime*s.Cfg.TicksPerYear))),
			Pos:       s.Grid.Point(plot),
		}
		s.Reg.AddProperty(p)
		s.plotTaken[plot] = p.ID
		s.assignRealtors(p)
		s.putOnMarket(p, step)
		m.Constructed++
	}
}

// neighborhoodQuality averages the quality of nearby stock so new builds fit
// their surroundings.
func (s *Simulation) neighborhoodQuality(pos orb.Point) float64 {
	var qs []float64
	for _, other := range s.Reg.Properties {
		if town.Within(pos, other.Pos, s.Cfg.Locality) {
			qs = append(qs, other.Quality)
		}
	}
	if len(qs) == 0 {
		return 1
	}
	q := mean(qs)
	if q < qualityMin {
		q = qualityMin
	}
	if q > qualityMax {
		q = qualityMax
	}
	return q
}

// assignRealtors attaches every realtor whose territory covers the property;
// if none does, the nearest realtor serves it alone.
func (s *Simulation) assignRealtors(p *entities.Property) {
	p.Realtors = p.Realtors[:0]
	for _, rl := range s.Reg.Realtors {
		if town.Within(rl.Pos, p.Pos, s.Cfg.RealtorTerritory) {
			p.Realtors = append(p.Realtors, rl.ID)
		}
	}
	if len(p.Realtors) > 0 {
		return
	}
	var nearest *entities.Realtor
	best := 0.0
	for _, rl := range s.Reg.Realtors {
		d := town.Distance(rl.Pos, p.Pos)
		if nearest == nil || d < best {
			nearest = rl
			best = d
		}
	}
	if nearest != nil {
		p.Realtors = append(p.Realtors, nearest.ID)
	}
}

// purgeOutdatedRecords drops realtor records older than the memory horizon.
func (s *Simulation) purgeOutdatedRecords(step uint64) {
	horizon := uint64(s.Cfg.RealtorMemory)
	if step <= horizon {
		return
	}
	cutoff := step - horizon
	for _, rl := range s.Reg.Realtors {
		n := 0
		for _, rec := range rl.Records {
			if rec.Step >= cutoff {
				rl.Records[n] = rec
				n++
			}
		}
		rl.Records = rl.Records[:n]
	}
}

// clearOffers sweeps every unsettled offer at the end of the step. Offers do
// not persist across steps; next step's matching starts clean.
func (s *Simulation) clearOffers() {
	for _, p := range s.Reg.Properties {
		if p.OfferedTo != 0 {
			s.cancelOffer(p)
		}
	}
}

// demolish removes stock past its end of life or listed below the minimum
// price floor. Occupants are evicted first (an owner-occupier back onto the
// purchase market, a tenant onto the rental market) and the owner's capital
// is credited with the price net of the outstanding mortgage.
func (s *Simulation) demolish(step uint64, m *StepMetrics) {
	minSale := s.medianSale * s.Cfg.MinPricePercent / 100
	minRent := s.medianRent * s.Cfg.MinPricePercent / 100

	var doomed []*entities.Property
	endOfLife := make(map[entities.PropertyID]bool)
	for _, p := range s.Reg.Properties {
		aged := step > p.EndOfLife
		cheap := (p.ForSale() && p.Price < minSale) || (p.ForRent() && p.RentPrice < minRent)
		if !aged && !cheap {
			continue
		}
		doomed = append(doomed, p)
		if aged {
			endOfLife[p.ID] = true
		}
	}

	for _, p := range doomed {
		if s.Reg.Property(p.ID) == nil {
			// A cascading eviction demolished it out from under us.
			continue
		}
		if owner := s.Reg.Household(p.Owner); owner != nil {
			if i, ok := owner.Owns(p.ID); ok {
				owner.Capital += p.Price - owner.Portfolio[i].Mortgage
				if owner.Capital < 0 {
					owner.Capital = 0
				}
			}
		}
		if occ := s.Reg.Household(p.Occupant); occ != nil {
			if occ.ID == p.Owner {
				s.evict(occ, step)
				s.enterMarket(occ, entities.SegmentPurchase)
			} else {
				s.evictRenter(occ, step)
				s.enterMarket(occ, entities.SegmentRental)
			}
		}

		if endOfLife[p.ID] {
			m.DemolishedEndOfLife++
		} else {
			m.DemolishedCheap++
		}
		m.Demolished++

		plot := s.plotIndex(p.Pos)
		if s.plotTaken[plot] == p.ID {
			delete(s.plotTaken, plot)
		}
		s.Reg.RemoveProperty(p.ID)
	}
}

func (s *Simulation) plotIndex(pos orb.Point) int {
	return int(pos[1])*s.Grid.Width + int(pos[0])
}

// decayPrices erodes asking prices on everything still listed at the end of
// the step.
func (s *Simulation) decayPrices() {
	for _, p := range s.Reg.Properties {
		if p.ForSale() {
			p.Price *= 1 - s.Cfg.PriceDropRate/100
		}
		if p.ForRent() {
			p.RentPrice *= 1 - s.Cfg.RentDropRate/100
		}
	}
}

// amortize advances every ledger one step (repayment, rate-lock expiry,
// repricing at the current rate) and settles each household's surplus income
// into savings.
func (s *Simulation) amortize(step uint64) {
	tpy := float64(s.Cfg.TicksPerYear)
	rate := s.Cfg.RatePerStep()

	for _, h := range s.Reg.Households {
		for i := range h.Portfolio {
			l := &h.Portfolio[i]
			l.Mortgage -= l.Repayment
			if l.Mortgage <= 0 {
				l.Mortgage = 0
				l.Repayment = 0
			}

			if l.RateLock == 0 && l.Repayment > 0 {
				if l.Rate != rate {
					l.Repayment = l.Principal / annuityFactor(rate, s.Cfg.MortgageSteps())
					l.Rate = rate
				}
				if i == 0 {
					l.RateLock = s.Rng.IntBetween(s.Cfg.MinRateLockOwner, s.Cfg.MaxRateLockOwner) * s.Cfg.TicksPerYear
				} else {
					l.RateLock = s.Rng.IntBetween(s.Cfg.MinRateLockBTL, s.Cfg.MaxRateLockBTL) * s.Cfg.TicksPerYear
				}
			}
			if l.RateLock > 0 {
				l.RateLock--
			}
			if l.TermLeft > 0 {
				l.TermLeft--
			}
		}

		h.Surplus = h.Income/tpy + h.TotalRentIncome() - h.TotalRepayment() - h.Rent
		if len(h.Portfolio) > 0 {
			h.Capital += h.Surplus * s.Cfg.SavingsOwner / 100
		} else {
			h.Capital += h.Surplus * s.Cfg.SavingsRenter / 100
		}
		if h.Capital < 0 {
			h.Capital = 0
		}
		h.Income *= 1 + s.Cfg.WageRise/100
	}
}
