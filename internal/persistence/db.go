// Package persistence provides SQLite-based simulation state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	_ "modernc.org/sqlite"

	"github.com/talgya/terrace/internal/engine"
	"github.com/talgya/terrace/internal/entities"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id INTEGER PRIMARY KEY,
		kind INTEGER NOT NULL,
		listing INTEGER NOT NULL,
		listed_since INTEGER NOT NULL,
		price REAL NOT NULL,
		rent_price REAL NOT NULL,
		quality REAL NOT NULL,
		owner INTEGER NOT NULL,
		occupant INTEGER NOT NULL,
		end_of_life INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		realtors_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS households (
		id INTEGER PRIMARY KEY,
		residence INTEGER NOT NULL,
		income REAL NOT NULL,
		capital REAL NOT NULL,
		surplus REAL NOT NULL,
		rent REAL NOT NULL,
		tenure INTEGER NOT NULL,
		on_market INTEGER NOT NULL,
		acquired_at INTEGER NOT NULL,
		propensity REAL NOT NULL,
		homeless_streak INTEGER NOT NULL,
		portfolio_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS realtors (
		id INTEGER PRIMARY KEY,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		avg_price REAL NOT NULL,
		avg_rent REAL NOT NULL,
		records_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_listing ON properties(listing);
	CREATE INDEX IF NOT EXISTS idx_households_residence ON households(residence);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveProperties writes all properties to the database (full replace).
func (db *DB) SaveProperties(props []*entities.Property) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM properties"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO properties
		(id, kind, listing, listed_since, price, rent_price, quality,
		 owner, occupant, end_of_life, pos_x, pos_y, realtors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range props {
		realtorsJSON, _ := json.Marshal(p.Realtors)
		_, err := stmt.Exec(
			p.ID, p.Kind, p.Listing, p.ListedSince, p.Price, p.RentPrice,
			p.Quality, p.Owner, p.Occupant, p.EndOfLife,
			p.Pos[0], p.Pos[1], string(realtorsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert property %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// SaveHouseholds writes all households to the database (full replace).
func (db *DB) SaveHouseholds(households []*entities.Household) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM households"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO households
		(id, residence, income, capital, surplus, rent, tenure, on_market,
		 acquired_at, propensity, homeless_streak, portfolio_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range households {
		portfolioJSON, _ := json.Marshal(h.Portfolio)
		_, err := stmt.Exec(
			h.ID, h.Residence, h.Income, h.Capital, h.Surplus, h.Rent,
			h.Tenure, h.OnMarket, h.AcquiredAt, h.InvestmentPropensity,
			h.HomelessStreak, string(portfolioJSON),
		)
		if err != nil {
			return fmt.Errorf("insert household %d: %w", h.ID, err)
		}
	}

	return tx.Commit()
}

// SaveRealtors writes all realtors to the database (full replace).
func (db *DB) SaveRealtors(realtors []*entities.Realtor) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM realtors"); err != nil {
		return err
	}

	for _, rl := range realtors {
		recordsJSON, _ := json.Marshal(rl.Records)
		_, err := tx.Exec(`INSERT INTO realtors
			(id, pos_x, pos_y, avg_price, avg_rent, records_json)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rl.ID, rl.Pos[0], rl.Pos[1], rl.AvgPrice, rl.AvgRent, string(recordsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert realtor %d: %w", rl.ID, err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in simulation metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// HasState reports whether the database holds a saved simulation.
func (db *DB) HasState() bool {
	_, err := db.GetMeta("last_step")
	return err == nil
}

// SaveState performs a full save of the simulation.
func (db *DB) SaveState(sim *engine.Simulation) error {
	slog.Info("saving state",
		"step", sim.CurrentStep(),
		"properties", len(sim.Reg.Properties),
		"households", len(sim.Reg.Households),
	)

	if err := db.SaveProperties(sim.Reg.Properties); err != nil {
		return fmt.Errorf("save properties: %w", err)
	}
	if err := db.SaveHouseholds(sim.Reg.Households); err != nil {
		return fmt.Errorf("save households: %w", err)
	}
	if err := db.SaveRealtors(sim.Reg.Realtors); err != nil {
		return fmt.Errorf("save realtors: %w", err)
	}
	if err := db.SaveMeta("last_step", strconv.FormatUint(sim.CurrentStep(), 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("seed", strconv.FormatInt(sim.Cfg.Seed, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("state saved")
	return nil
}

// LoadState restores a saved simulation into sim's registry and returns the
// last completed step. The registry must be empty.
func (db *DB) LoadState(sim *engine.Simulation) (uint64, error) {
	if err := db.loadProperties(sim.Reg); err != nil {
		return 0, fmt.Errorf("load properties: %w", err)
	}
	if err := db.loadHouseholds(sim.Reg); err != nil {
		return 0, fmt.Errorf("load households: %w", err)
	}
	if err := db.loadRealtors(sim.Reg); err != nil {
		return 0, fmt.Errorf("load realtors: %w", err)
	}

	stepStr, err := db.GetMeta("last_step")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load meta: %w", err)
	}
	step, err := strconv.ParseUint(stepStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse last_step: %w", err)
	}

	slog.Info("state restored",
		"step", step,
		"properties", len(sim.Reg.Properties),
		"households", len(sim.Reg.Households),
		"realtors", len(sim.Reg.Realtors),
	)
	return step, nil
}

type propertyRow struct {
	ID           uint64  `db:"id"`
	Kind         uint8   `db:"kind"`
	Listing      uint8   `db:"listing"`
	ListedSince  uint64  `db:"listed_since"`
	Price        float64 `db:"price"`
	RentPrice    float64 `db:"rent_price"`
	Quality      float64 `db:"quality"`
	Owner        uint64  `db:"owner"`
	Occupant     uint64  `db:"occupant"`
	EndOfLife    uint64  `db:"end_of_life"`
	PosX         float64 `db:"pos_x"`
	PosY         float64 `db:"pos_y"`
	RealtorsJSON string  `db:"realtors_json"`
}

func (db *DB) loadProperties(reg *entities.Registry) error {
	var rows []propertyRow
	if err := db.conn.Select(&rows, "SELECT * FROM properties ORDER BY id"); err != nil {
		return err
	}
	for _, r := range rows {
		p := &entities.Property{
			ID:          entities.PropertyID(r.ID),
			Kind:        entities.PropertyKind(r.Kind),
			Listing:     entities.ListingState(r.Listing),
			ListedSince: r.ListedSince,
			Price:       r.Price,
			RentPrice:   r.RentPrice,
			Quality:     r.Quality,
			Owner:       entities.HouseholdID(r.Owner),
			Occupant:    entities.HouseholdID(r.Occupant),
			EndOfLife:   r.EndOfLife,
			Pos:         orb.Point{r.PosX, r.PosY},
		}
		if err := json.Unmarshal([]byte(r.RealtorsJSON), &p.Realtors); err != nil {
			return fmt.Errorf("property %d realtors: %w", r.ID, err)
		}
		reg.AdoptProperty(p)
	}
	return nil
}

type householdRow struct {
	ID             uint64  `db:"id"`
	Residence      uint64  `db:"residence"`
	Income         float64 `db:"income"`
	Capital        float64 `db:"capital"`
	Surplus        float64 `db:"surplus"`
	Rent           float64 `db:"rent"`
	Tenure         uint8   `db:"tenure"`
	OnMarket       uint8   `db:"on_market"`
	AcquiredAt     uint64  `db:"acquired_at"`
	Propensity     float64 `db:"propensity"`
	HomelessStreak int     `db:"homeless_streak"`
	PortfolioJSON  string  `db:"portfolio_json"`
}

func (db *DB) loadHouseholds(reg *entities.Registry) error {
	var rows []householdRow
	if err := db.conn.Select(&rows, "SELECT * FROM households ORDER BY id"); err != nil {
		return err
	}
	for _, r := range rows {
		h := &entities.Household{
			ID:                   entities.HouseholdID(r.ID),
			Residence:            entities.PropertyID(r.Residence),
			Income:               r.Income,
			Capital:              r.Capital,
			Surplus:              r.Surplus,
			Rent:                 r.Rent,
			Tenure:               entities.Tenure(r.Tenure),
			OnMarket:             entities.MarketSegment(r.OnMarket),
			AcquiredAt:           r.AcquiredAt,
			InvestmentPropensity: r.Propensity,
			HomelessStreak:       r.HomelessStreak,
		}
		if err := json.Unmarshal([]byte(r.PortfolioJSON), &h.Portfolio); err != nil {
			return fmt.Errorf("household %d portfolio: %w", r.ID, err)
		}
		reg.AdoptHousehold(h)
	}
	return nil
}

type realtorRow struct {
	ID          uint64  `db:"id"`
	PosX        float64 `db:"pos_x"`
	PosY        float64 `db:"pos_y"`
	AvgPrice    float64 `db:"avg_price"`
	AvgRent     float64 `db:"avg_rent"`
	RecordsJSON string  `db:"records_json"`
}

func (db *DB) loadRealtors(reg *entities.Registry) error {
	var rows []realtorRow
	if err := db.conn.Select(&rows, "SELECT * FROM realtors ORDER BY id"); err != nil {
		return err
	}
	for _, r := range rows {
		rl := &entities.Realtor{
			ID:       entities.RealtorID(r.ID),
			Pos:      orb.Point{r.PosX, r.PosY},
			AvgPrice: r.AvgPrice,
			AvgRent:  r.AvgRent,
		}
		if err := json.Unmarshal([]byte(r.RecordsJSON), &rl.Records); err != nil {
			return fmt.Errorf("realtor %d records: %w", r.ID, err)
		}
		reg.AdoptRealtor(rl)
	}
	return nil
}
