package persistence

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/terrace/internal/config"
	"github.com/talgya/terrace/internal/engine"
	"github.com/talgya/terrace/internal/entities"
	"github.com/talgya/terrace/internal/entropy"
	"github.com/talgya/terrace/internal/town"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newBareSim() *engine.Simulation {
	cfg := config.Default()
	cfg.GridWidth = 10
	cfg.GridHeight = 10
	return engine.NewSimulation(cfg, town.NewGrid(10, 10), entropy.NewSource(1))
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	assert.False(t, db.HasState())

	require.NoError(t, db.SaveMeta("last_step", "17"))
	require.NoError(t, db.SaveMeta("last_step", "18")) // upsert

	v, err := db.GetMeta("last_step")
	require.NoError(t, err)
	assert.Equal(t, "18", v)
	assert.True(t, db.HasState())

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	db := openTestDB(t)

	src := newBareSim()
	rl := src.Reg.AddRealtor(&entities.Realtor{
		Pos:      orb.Point{5, 5},
		AvgPrice: 120000,
		AvgRent:  900,
		Records: []entities.TransactionRecord{
			{Property: 1, Kind: entities.RecordSale, SalePrice: 115000, Step: 3, Pos: orb.Point{2, 2}},
		},
	})
	p := src.Reg.AddProperty(&entities.Property{
		Kind:        entities.KindOwnedMarket,
		Listing:     entities.ListedForSale,
		ListedSince: 4,
		Price:       115000,
		Quality:     1.2,
		EndOfLife:   900,
		Pos:         orb.Point{2, 2},
		Realtors:    []entities.RealtorID{rl.ID},
	})
	h := src.Reg.AddHousehold(&entities.Household{
		Residence:            p.ID,
		Income:               34000,
		Capital:              8000,
		Surplus:              1200,
		Tenure:               entities.TenureOwner,
		OnMarket:             entities.SegmentPurchase,
		AcquiredAt:           2,
		InvestmentPropensity: 0.4,
		Portfolio: []entities.Ledger{{
			Property:  p.ID,
			Mortgage:  90000,
			Principal: 100000,
			TermLeft:  80,
			Rate:      0.0075,
			RateLock:  6,
			Repayment: 1425,
		}},
	})
	p.Owner = h.ID
	p.Occupant = h.ID
	src.LastStep = 5

	require.NoError(t, db.SaveState(src))
	require.True(t, db.HasState())

	dst := newBareSim()
	step, err := db.LoadState(dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), step)

	gotP := dst.Reg.Property(p.ID)
	require.NotNil(t, gotP)
	assert.Equal(t, *p, *gotP)

	gotH := dst.Reg.Household(h.ID)
	require.NotNil(t, gotH)
	assert.Equal(t, *h, *gotH)

	gotR := dst.Reg.Realtor(rl.ID)
	require.NotNil(t, gotR)
	assert.Equal(t, *rl, *gotR)

	// ID allocation continues past the restored entities.
	next := dst.Reg.AddProperty(&entities.Property{})
	assert.Equal(t, p.ID+1, next.ID)
}

func TestSaveStateReplacesPreviousSnapshot(t *testing.T) {
	db := openTestDB(t)

	src := newBareSim()
	src.Reg.AddProperty(&entities.Property{Quality: 1})
	src.Reg.AddProperty(&entities.Property{Quality: 1})
	src.LastStep = 1
	require.NoError(t, db.SaveState(src))

	src.Reg.RemoveProperty(2)
	src.LastStep = 2
	require.NoError(t, db.SaveState(src))

	dst := newBareSim()
	step, err := db.LoadState(dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), step)
	assert.Len(t, dst.Reg.Properties, 1)
	assert.Nil(t, dst.Reg.Property(2))
}
