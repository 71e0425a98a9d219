// Package engine provides the housing-market engine: valuation, offer
// matching, chain resolution, settlement, and the per-step lifecycle pass.
package engine

import (
	"log/slog"

	"github.com/talgya/terrace/internal/config"
	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/entropy"
	"github.com/talgya/terrace/internal/town"
)

// Simulation holds the complete market state and wires the phases together.
// Single-threaded: a step runs each phase once, in order, to completion.
type Simulation struct {
	Cfg  *config.Config
	Reg  *entities.Registry
	Grid *town.Grid
	Rng  *entropy.Source

	// LastStep is the most recent fully completed step.
	LastStep uint64

	// Last holds the metrics of the most recent step.
	Last StepMetrics

	// Market medians observed during the current step's matching phase.
	medianSale float64
	medianRent float64

	// Plot occupancy: plot index → property. Construction needs vacant plots.
	plotTaken map[int]entities.PropertyID
}

// NewSimulation creates an empty simulation over the given grid.
func NewSimulation(cfg *config.Config, grid *town.Grid, rng *entropy.Source) *Simulation {
	return &Simulation{
		Cfg:       cfg,
		Reg:       entities.NewRegistry(),
		Grid:      grid,
		Rng:       rng,
		plotTaken: make(map[int]entities.PropertyID),
	}
}

// CurrentStep returns the most recently completed step number.
func (s *Simulation) CurrentStep() uint64 {
	return s.LastStep
}

// Year returns the simulated year of the given step.
func (s *Simulation) Year(step uint64) int {
	return int(step) / s.Cfg.TicksPerYear
}

// RebuildPlots reindexes plot occupancy from property positions, needed after
// restoring a snapshot.
func (s *Simulation) RebuildPlots() {
	s.plotTaken = make(map[int]entities.PropertyID, len(s.Reg.Properties))
	for _, p := range s.Reg.Properties {
		s.plotTaken[s.plotIndex(p.Pos)] = p.ID
	}
}

// Extinct reports whether the run has reached a terminal state: no
// households or no properties left. Terminal, not an error.
func (s *Simulation) Extinct() bool {
	return len(s.Reg.Households) == 0 || len(s.Reg.Properties) == 0
}

// Step advances the simulation one step and returns its metrics.
// Phase order is fixed: policy refresh, population turnover, participation
// screening, construction, trading (valuation → offers → chains →
// settlement), record cleanup, stale offers, demolition, price decay,
// amortization and rate resets.
func (s *Simulation) Step() StepMetrics {
	step := s.LastStep + 1
	m := StepMetrics{Step: step}

	s.applySchedule(step)
	s.refreshRealtorAverages()

	s.managePopulation(step, &m)
	s.applyIncomeShocks(step, &m)
	s.screenParticipation(step, &m)
	s.constructProperties(step, &m)

	s.trade(step, &m)

	s.purgeOutdatedRecords(step)
	s.clearOffers()
	s.demolish(step, &m)
	s.decayPrices()
	s.amortize(step)

	m.MedianSalePrice = s.medianSale
	m.MedianRentPrice = s.medianRent

	s.LastStep = step
	s.Last = m

	slog.Info("step complete",
		"step", step,
		"households", len(s.Reg.Households),
		"properties", len(s.Reg.Properties),
		"sales", m.Sales,
		"lettings", m.Lettings,
		"evicted_owners", m.EvictedOwners,
		"evicted_renters", m.EvictedRenters,
		"demolished", m.Demolished,
		"median_price", m.MedianSalePrice,
		"median_rent", m.MedianRentPrice,
	)

	return m
}

// applySchedule applies any policy override whose simulated year begins at
// this step. Configuration is re-read every step; overrides mutate it here
// and nowhere else.
func (s *Simulation) applySchedule(step uint64) {
	if len(s.Cfg.Schedule) == 0 {
		return
	}
	if int(step)%s.Cfg.TicksPerYear != 0 {
		return
	}
	year := s.Year(step)
	for _, o := range s.Cfg.Schedule {
		if o.Year == year {
			s.Cfg.Apply(o)
			slog.Info("policy override applied", "year", year, "step", step)
		}
	}
}

// refreshRealtorAverages recomputes each realtor's running averages over the
// priced properties in its territory. The last-resort valuation fallback when
// no comparables or local listings exist.
func (s *Simulation) refreshRealtorAverages() {
	for _, rl := range s.Reg.Realtors {
		var prices, rents []float64
		for _, p := range s.Reg.Properties {
			if !town.Within(rl.Pos, p.Pos, s.Cfg.RealtorTerritory) {
				continue
			}
			if p.Price > 0 {
				prices = append(prices, p.Price)
			}
			if p.RentPrice > 0 {
				rents = append(rents, p.RentPrice)
			}
		}
		if len(prices) > 0 {
			rl.AvgPrice = mean(prices)
		}
		if len(rents) > 0 {
			rl.AvgRent = mean(rents)
		}
	}
}

// Snapshot returns a read-only census of the current state.
func (s *Simulation) Snapshot() Census {
	c := Census{
		Step:            s.LastStep,
		Properties:      len(s.Reg.Properties),
		Households:      len(s.Reg.Households),
		MedianSalePrice: s.medianSale,
		MedianRentPrice: s.medianRent,
	}
	for _, p := range s.Reg.Properties {
		switch p.Kind {
		case entities.KindOwnedMarket:
			c.OwnedMarket++
		case entities.KindRentalMarket:
			c.RentalMarket++
		}
		switch p.Listing {
		case entities.ListedForSale:
			c.ListedForSale++
		case entities.ListedForRent:
			c.ListedForRent++
		}
	}
	var incomes, capitals []float64
	for _, h := range s.Reg.Households {
		incomes = append(incomes, h.Income)
		capitals = append(capitals, h.Capital)
		if h.Residence == 0 {
			c.Homeless++
		} else if h.Tenure == entities.TenureOwner {
			c.Owners++
		} else {
			c.Renters++
		}
		switch h.OnMarket {
		case entities.SegmentPurchase:
			c.OnPurchaseMarket++
		case entities.SegmentBuyToLet:
			c.OnBuyToLetMarket++
		case entities.SegmentRental:
			c.OnRentalMarket++
		}
	}
	c.MeanIncome = mean(incomes)
	c.MeanCapital = mean(capitals)
	return c
}

// Distributions returns copies of the income/capital/price vectors.
func (s *Simulation) Distributions() Distributions {
	var d Distributions
	for _, h := range s.Reg.Households {
		d.Incomes = append(d.Incomes, h.Income)
		d.Capitals = append(d.Capitals, h.Capital)
	}
	for _, p := range s.Reg.Properties {
		if p.Price > 0 {
			d.Prices = append(d.Prices, p.Price)
		}
		if p.RentPrice > 0 {
			d.Rents = append(d.Rents, p.RentPrice)
		}
	}
	return d
}
