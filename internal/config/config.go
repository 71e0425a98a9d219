// Package config provides the simulation inputs. Values load from an
// optional YAML file and may be overridden by environment variables. Policy
// fields can additionally be rewritten mid-run by a year-keyed override
// schedule; engine code must read config at the start of each step and never
// cache policy values across steps.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds every externally supplied parameter of a run.
type Config struct {
	// Financial policy (mutable mid-run via the override schedule).
	InterestRate  float64 `yaml:"interest_rate" env:"TERRACE_INTEREST_RATE"`   // % per year
	MaxLTV        float64 `yaml:"max_ltv" env:"TERRACE_MAX_LTV"`               // % of price
	Affordability float64 `yaml:"affordability" env:"TERRACE_AFFORDABILITY"`   // % of annual income
	StampDuty     bool    `yaml:"stamp_duty" env:"TERRACE_STAMP_DUTY"`         // tiered purchase tax toggle

	// Time.
	TicksPerYear int `yaml:"ticks_per_year" env:"TERRACE_TICKS_PER_YEAR"`
	Steps        int `yaml:"steps" env:"TERRACE_STEPS"` // total steps to run

	// City layout.
	GridWidth  int     `yaml:"grid_width"`
	GridHeight int     `yaml:"grid_height"`
	Density    float64 `yaml:"density"` // % of plots holding a property

	// Initial mix.
	OwnedPercentage  float64 `yaml:"owned_percentage"`   // % of properties on the owned market
	InitialOccupancy float64 `yaml:"initial_occupancy"`  // % of properties occupied at seeding
	FullyPaidOwners  float64 `yaml:"fully_paid_owners"`  // % of owners seeded mortgage-free

	// Incomes and savings.
	MeanIncome      float64 `yaml:"mean_income"`       // per year
	WageRise        float64 `yaml:"wage_rise"`         // % per step
	CapitalOwner    float64 `yaml:"capital_owner"`     // initial capital, % of income (owners)
	CapitalRenter   float64 `yaml:"capital_renter"`    // initial capital, % of income (renters)
	SavingsOwner    float64 `yaml:"savings_owner"`     // % of surplus saved per step (owners)
	SavingsRenter   float64 `yaml:"savings_renter"`    // % of surplus saved per step (renters)

	// Mortgages.
	MortgageYears      int `yaml:"mortgage_years"`
	MinRateLockOwner   int `yaml:"min_rate_lock_owner"` // steps
	MaxRateLockOwner   int `yaml:"max_rate_lock_owner"`
	MinRateLockBTL     int `yaml:"min_rate_lock_btl"`
	MaxRateLockBTL     int `yaml:"max_rate_lock_btl"`

	// Population turnover.
	EntryRate         float64 `yaml:"entry_rate"`          // % of households per step
	ExitRate          float64 `yaml:"exit_rate"`           // % of households per step
	MaxHomelessPeriod int     `yaml:"max_homeless_period"` // steps before discouragement

	// Income shocks.
	ShockInterval  int     `yaml:"shock_interval"`  // steps between shock rounds, 0 disables
	ShockShare     float64 `yaml:"shock_share"`     // % of households shocked per round
	ShockMagnitude float64 `yaml:"shock_magnitude"` // % change in income
	ShockResponse  bool    `yaml:"shock_response"`  // route shocked owners onto markets

	// Market behavior.
	BuyerSearchLength int     `yaml:"buyer_search_length"` // candidate cap
	InvestorShare     float64 `yaml:"investor_share"`      // % propensity gate for buy-to-let
	UpgradeTenancy    float64 `yaml:"upgrade_tenancy"`     // % propensity gate for re-rental upgrade
	SavingsThreshold  float64 `yaml:"savings_threshold"`   // capital-to-deposit multiple for well-off renters

	// Distress thresholds.
	EvictionThresholdMortgage float64 `yaml:"eviction_threshold_mortgage"`
	EvictionThresholdRent     float64 `yaml:"eviction_threshold_rent"`

	// Realtors.
	Realtors         int     `yaml:"realtors"`
	RealtorTerritory float64 `yaml:"realtor_territory"` // plots (radius)
	RealtorMemory    int     `yaml:"realtor_memory"`    // steps records are kept
	RealtorOptimism  float64 `yaml:"realtor_optimism"`  // % markup on valuations
	Locality         float64 `yaml:"locality"`          // comparable radius, plots

	// Stock dynamics.
	HouseMeanLifetime int     `yaml:"house_mean_lifetime"` // years
	ConstructionRate  float64 `yaml:"construction_rate"`   // % of stock per step
	MinPricePercent   float64 `yaml:"min_price_percent"`   // demolition floor, % of market median
	PriceDropRate     float64 `yaml:"price_drop_rate"`     // % decay per unsold step
	RentDropRate      float64 `yaml:"rent_drop_rate"`      // % decay per unrented step
	PriceFloor        float64 `yaml:"price_floor"`         // valuation damping floor, sale
	RentFloor         float64 `yaml:"rent_floor"`          // valuation damping floor, rent

	Seed int64 `yaml:"seed" env:"TERRACE_SEED"`

	// Infrastructure.
	DBPath    string `yaml:"db_path" env:"TERRACE_DB_PATH"`
	APIPort   int    `yaml:"api_port" env:"TERRACE_API_PORT"`
	AdminKey  string `yaml:"-" env:"TERRACE_ADMIN_KEY"`
	SaveEvery int    `yaml:"save_every"` // steps between snapshots, 0 disables

	// Schedule of policy overrides applied at the start of the step that
	// begins the named simulated year.
	Schedule []Override `yaml:"schedule"`
}

// Override rewrites policy parameters at a given simulated year. Nil fields
// are left untouched.
type Override struct {
	Year          int      `yaml:"year" json:"year"`
	InterestRate  *float64 `yaml:"interest_rate,omitempty" json:"interest_rate,omitempty"`
	MaxLTV        *float64 `yaml:"max_ltv,omitempty" json:"max_ltv,omitempty"`
	Affordability *float64 `yaml:"affordability,omitempty" json:"affordability,omitempty"`
	StampDuty     *bool    `yaml:"stamp_duty,omitempty" json:"stamp_duty,omitempty"`
	EntryRate     *float64 `yaml:"entry_rate,omitempty" json:"entry_rate,omitempty"`
	ExitRate      *float64 `yaml:"exit_rate,omitempty" json:"exit_rate,omitempty"`
}

// Default returns the reference parameter set.
func Default() *Config {
	return &Config{
		InterestRate:  3,
		MaxLTV:        90,
		Affordability: 33,
		StampDuty:     false,

		TicksPerYear: 4,
		Steps:        200,

		GridWidth:  40,
		GridHeight: 40,
		Density:    70,

		OwnedPercentage:  50,
		InitialOccupancy: 95,
		FullyPaidOwners:  0,

		MeanIncome:    30000,
		WageRise:      0,
		CapitalOwner:  100,
		CapitalRenter: 50,
		SavingsOwner:  20,
		SavingsRenter: 5,

		MortgageYears:    25,
		MinRateLockOwner: 2,
		MaxRateLockOwner: 5,
		MinRateLockBTL:   1,
		MaxRateLockBTL:   1,

		EntryRate:         4,
		ExitRate:          2,
		MaxHomelessPeriod: 5,

		ShockInterval:  0,
		ShockShare:     5,
		ShockMagnitude: 20,
		ShockResponse:  true,

		BuyerSearchLength: 5,
		InvestorShare:     50,
		UpgradeTenancy:    50,
		SavingsThreshold:  2,

		EvictionThresholdMortgage: 3,
		EvictionThresholdRent:     1,

		Realtors:         6,
		RealtorTerritory: 16,
		RealtorMemory:    10,
		RealtorOptimism:  3,
		Locality:         3,

		HouseMeanLifetime: 100,
		ConstructionRate:  0.36,
		MinPricePercent:   20,
		PriceDropRate:     3,
		RentDropRate:      3,
		PriceFloor:        5000,
		RentFloor:         500,

		Seed: 42,

		DBPath:    "data/terrace.db",
		APIPort:   8080,
		SaveEvery: 10,
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects parameter combinations the engine cannot run with.
func (c *Config) Validate() error {
	if c.TicksPerYear <= 0 {
		return fmt.Errorf("ticks_per_year must be positive, got %d", c.TicksPerYear)
	}
	if c.InterestRate <= 0 {
		return fmt.Errorf("interest_rate must be positive, got %g", c.InterestRate)
	}
	if c.MaxLTV <= 0 || c.MaxLTV > 100 {
		return fmt.Errorf("max_ltv must be in (0, 100], got %g", c.MaxLTV)
	}
	if c.MortgageYears <= 0 {
		return fmt.Errorf("mortgage_years must be positive, got %d", c.MortgageYears)
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 {
		return fmt.Errorf("grid must be positive, got %dx%d", c.GridWidth, c.GridHeight)
	}
	return nil
}

// RatePerStep converts the annual interest rate percentage to a per-step
// fraction.
func (c *Config) RatePerStep() float64 {
	return c.InterestRate / (float64(c.TicksPerYear) * 100)
}

// MortgageSteps is the full mortgage term in steps.
func (c *Config) MortgageSteps() int {
	return c.MortgageYears * c.TicksPerYear
}

// Apply copies the override's non-nil fields into the config.
func (c *Config) Apply(o Override) {
	if o.InterestRate != nil {
		c.InterestRate = *o.InterestRate
	}
	if o.MaxLTV != nil {
		c.MaxLTV = *o.MaxLTV
	}
	if o.Affordability != nil {
		c.Affordability = *o.Affordability
	}
	if o.StampDuty != nil {
		c.StampDuty = *o.StampDuty
	}
	if o.EntryRate != nil {
		c.EntryRate = *o.EntryRate
	}
	if o.ExitRate != nil {
		c.ExitRate = *o.ExitRate
	}
}
