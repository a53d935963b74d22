package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/cdasim/internal/agents"
	"github.com/talgya/cdasim/internal/engine"
	"github.com/talgya/cdasim/internal/market"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cdasim.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecorderRoundTrip(t *testing.T) {
	db := openTestDB(t)

	pop, err := agents.NewPopulation(agents.Assignment{"0.1": 3}, agents.Assignment{"0.1": 3}, agents.StyleStandard)
	require.NoError(t, err)
	sim := engine.NewSimulation(pop, market.Call{}, 99)

	rec, err := db.NewRecorder(sim, []byte(`{"assignment":{}}`), 4)
	require.NoError(t, err)

	var observations []engine.Observation
	require.NoError(t, sim.Run(10, func(obs engine.Observation) error {
		observations = append(observations, obs)
		return rec.Record(obs)
	}))
	require.NoError(t, rec.Flush())

	rounds, err := db.RunRounds(sim.ID.String())
	require.NoError(t, err)
	require.Equal(t, 10, rounds)

	rows, err := db.RunFeatures(sim.ID.String())
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for i, row := range rows {
		f := observations[i].Features
		require.Equal(t, i, row.Round)
		require.Equal(t, f.Surplus, row.Surplus)
		require.Equal(t, f.CESurplus, row.CESurplus)
		require.Equal(t, f.IMSurplus, row.IMSurplus)
		require.Equal(t, f.EMSurplus, row.EMSurplus)
		require.Equal(t, f.Trades, row.Trades)
		if f.CEPrice == nil {
			require.Nil(t, row.CEPrice)
		} else {
			require.NotNil(t, row.CEPrice)
			require.Equal(t, *f.CEPrice, *row.CEPrice)
		}
	}

	players, err := db.RunPlayers(sim.ID.String(), 3)
	require.NoError(t, err)
	require.Equal(t, observations[3].Players, players)
}

func TestSaveObservationsEmpty(t *testing.T) {
	db := openTestDB(t)
	sim := engine.NewSimulation(nil, market.CDA{}, 1)
	require.NoError(t, db.SaveObservations(sim, nil))
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("version", "1"))
	require.NoError(t, db.SaveMeta("version", "2"))
	v, err := db.GetMeta("version")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	_, err = db.GetMeta("missing")
	require.Error(t, err)
}
