// Package persistence provides SQLite-based storage of simulation runs and
// their observations.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cdasim/internal/engine"
)

// DB wraps a SQLite connection for observation storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		mechanism TEXT NOT NULL,
		agents INTEGER NOT NULL,
		rounds INTEGER NOT NULL DEFAULT 0,
		spec_json TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS observations (
		run_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		surplus REAL NOT NULL,
		ce_surplus REAL NOT NULL,
		im_surplus REAL NOT NULL,
		em_surplus REAL NOT NULL,
		ce_price REAL,
		trades INTEGER NOT NULL,
		players_json TEXT NOT NULL,
		PRIMARY KEY (run_id, round)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun records the start of a simulation run.
func (db *DB) SaveRun(sim *engine.Simulation, specLine []byte) error {
	_, err := db.conn.Exec(`INSERT INTO runs
		(id, seed, mechanism, agents, spec_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sim.ID.String(), sim.Seed, sim.Mechanism.Name(), len(sim.Agents),
		string(specLine), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", sim.ID, err)
	}
	return nil
}

// SaveObservations appends observations for a run in one transaction.
func (db *DB) SaveObservations(sim *engine.Simulation, observations []engine.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO observations
		(run_id, round, surplus, ce_surplus, im_surplus, em_surplus, ce_price, trades, players_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, obs := range observations {
		playersJSON, err := json.Marshal(obs.Players)
		if err != nil {
			return fmt.Errorf("marshal players: %w", err)
		}
		f := obs.Features
		_, err = stmt.Exec(
			sim.ID.String(), obs.Round,
			f.Surplus, f.CESurplus, f.IMSurplus, f.EMSurplus, f.CEPrice, f.Trades,
			string(playersJSON),
		)
		if err != nil {
			return fmt.Errorf("insert observation %d: %w", obs.Round, err)
		}
	}

	if _, err := tx.Exec("UPDATE runs SET rounds = ? WHERE id = ?", sim.Rounds, sim.ID.String()); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return tx.Commit()
}

// FeatureRow is one stored observation's features.
type FeatureRow struct {
	Round     int      `db:"round"`
	Surplus   float64  `db:"surplus"`
	CESurplus float64  `db:"ce_surplus"`
	IMSurplus float64  `db:"im_surplus"`
	EMSurplus float64  `db:"em_surplus"`
	CEPrice   *float64 `db:"ce_price"`
	Trades    int      `db:"trades"`
}

// RunFeatures returns a run's stored features in round order.
func (db *DB) RunFeatures(runID string) ([]FeatureRow, error) {
	var rows []FeatureRow
	err := db.conn.Select(&rows,
		`SELECT round, surplus, ce_surplus, im_surplus, em_surplus, ce_price, trades
		FROM observations WHERE run_id = ? ORDER BY round`,
		runID,
	)
	return rows, err
}

// RunPlayers returns the stored player records of one round.
func (db *DB) RunPlayers(runID string, round int) ([]engine.Player, error) {
	var playersJSON string
	err := db.conn.Get(&playersJSON,
		"SELECT players_json FROM observations WHERE run_id = ? AND round = ?",
		runID, round,
	)
	if err != nil {
		return nil, err
	}
	var players []engine.Player
	if err := json.Unmarshal([]byte(playersJSON), &players); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}
	return players, nil
}

// RunRounds returns the number of rounds recorded for a run.
func (db *DB) RunRounds(runID string) (int, error) {
	var rounds int
	err := db.conn.Get(&rounds, "SELECT rounds FROM runs WHERE id = ?", runID)
	return rounds, err
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// Recorder buffers a run's observations and writes them in batches.
type Recorder struct {
	db    *DB
	sim   *engine.Simulation
	batch []engine.Observation
	size  int
}

// NewRecorder registers sim as a run and returns a batching recorder for it.
func (db *DB) NewRecorder(sim *engine.Simulation, specLine []byte, batchSize int) (*Recorder, error) {
	if err := db.SaveRun(sim, specLine); err != nil {
		return nil, err
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Recorder{db: db, sim: sim, size: batchSize}, nil
}

// Record buffers obs, writing the batch when it is full.
func (r *Recorder) Record(obs engine.Observation) error {
	r.batch = append(r.batch, obs)
	if len(r.batch) >= r.size {
		return r.Flush()
	}
	return nil
}

// Flush writes any buffered observations.
func (r *Recorder) Flush() error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := r.db.SaveObservations(r.sim, r.batch); err != nil {
		return fmt.Errorf("save observations: %w", err)
	}
	slog.Debug("observations saved", "run", r.sim.ID, "count", len(r.batch))
	r.batch = r.batch[:0]
	return nil
}
