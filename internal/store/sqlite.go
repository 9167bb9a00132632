// Package store persists scan results to SQLite. Every scan writes a
// fresh, immutable snapshot keyed by its scan identifier; nothing in
// the pipeline reads persisted history back.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"swing-scanner/internal/models"
	"swing-scanner/internal/scanner"
)

// SQLiteStore implements scan persistence using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the scan database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per scan batch
	CREATE TABLE IF NOT EXISTS scan_runs (
		id TEXT PRIMARY KEY,
		benchmark TEXT NOT NULL,
		regime_label TEXT NOT NULL,
		regime_bullish INTEGER NOT NULL,
		regime_close REAL,
		regime_ema20 REAL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		ticker_count INTEGER NOT NULL,
		setup_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Support/resistance bands per ticker per scan
	CREATE TABLE IF NOT EXISTS zones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		level REAL NOT NULL,
		upper REAL NOT NULL,
		lower REAL NOT NULL,
		zone_type TEXT NOT NULL,
		atr REAL NOT NULL,
		FOREIGN KEY (scan_id) REFERENCES scan_runs(id)
	);

	-- Trade candidates per scan
	CREATE TABLE IF NOT EXISTS setups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		sector TEXT,
		setup_type TEXT NOT NULL,
		setup_date DATETIME NOT NULL,
		entry REAL,
		stop_loss REAL,
		take_profit REAL,
		risk_reward REAL,
		path TEXT,
		resistance_level REAL,
		volume_ratio REAL,
		support_level REAL,
		cci_today REAL,
		cci_yesterday REAL,
		relaxed INTEGER DEFAULT 0,
		base_type TEXT,
		signal TEXT,
		quality_score INTEGER,
		base_depth_pct REAL,
		base_length INTEGER,
		volume_dry_pct REAL,
		rs_vs_benchmark REAL,
		rs_blue_dot INTEGER DEFAULT 0,
		watch_level TEXT,
		watch_price REAL,
		distance_pct REAL,
		FOREIGN KEY (scan_id) REFERENCES scan_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_zones_scan ON zones(scan_id, ticker);
	CREATE INDEX IF NOT EXISTS idx_setups_scan ON setups(scan_id);
	CREATE INDEX IF NOT EXISTS idx_setups_type ON setups(setup_type, quality_score);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveScan writes a complete scan snapshot in one transaction.
func (s *SQLiteStore) SaveScan(ctx context.Context, res *scanner.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_runs (id, benchmark, regime_label, regime_bullish,
			regime_close, regime_ema20, started_at, finished_at,
			ticker_count, setup_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ScanID, res.Benchmark, res.Regime.Label, boolInt(res.Regime.IsBullish),
		res.Regime.Close, res.Regime.EMA20, res.StartedAt, res.FinishedAt,
		len(res.Outcomes), len(res.Setups))
	if err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}

	zoneStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zones (scan_id, ticker, level, upper, lower, zone_type, atr)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare zone insert: %w", err)
	}
	defer zoneStmt.Close()

	for _, o := range res.Outcomes {
		for _, z := range o.Zones {
			if _, err := zoneStmt.ExecContext(ctx, res.ScanID, o.Ticker,
				z.Level, z.Upper, z.Lower, string(z.Type), z.ATR); err != nil {
				return fmt.Errorf("failed to insert zone: %w", err)
			}
		}
	}

	setupStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO setups (scan_id, ticker, sector, setup_type, setup_date,
			entry, stop_loss, take_profit, risk_reward, path,
			resistance_level, volume_ratio, support_level, cci_today,
			cci_yesterday, relaxed, base_type, signal, quality_score,
			base_depth_pct, base_length, volume_dry_pct, rs_vs_benchmark,
			rs_blue_dot, watch_level, watch_price, distance_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare setup insert: %w", err)
	}
	defer setupStmt.Close()

	for _, setup := range res.Setups {
		if _, err := setupStmt.ExecContext(ctx,
			res.ScanID, setup.Ticker, setup.Sector, string(setup.Type), setup.SetupDate,
			setup.Entry, setup.StopLoss, setup.TakeProfit, setup.RiskReward, string(setup.Path),
			setup.ResistanceLevel, setup.VolumeRatio, setup.SupportLevel, setup.CCIToday,
			setup.CCIYesterday, boolInt(setup.Relaxed), string(setup.BaseType), string(setup.Signal),
			setup.QualityScore, setup.BaseDepthPct, setup.BaseLength, setup.VolumeDryPct,
			setup.RSVsBenchmark, boolInt(setup.RSBlueDot), string(setup.WatchLevel),
			setup.WatchPrice, setup.DistancePct); err != nil {
			return fmt.Errorf("failed to insert setup: %w", err)
		}
	}

	return tx.Commit()
}

// ScanRun summarizes one persisted scan batch.
type ScanRun struct {
	ID          string
	Benchmark   string
	RegimeLabel string
	IsBullish   bool
	StartedAt   time.Time
	FinishedAt  time.Time
	TickerCount int
	SetupCount  int
}

// LatestRun returns the most recent scan batch, or nil when the
// database is empty.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*ScanRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, benchmark, regime_label, regime_bullish,
			started_at, finished_at, ticker_count, setup_count
		FROM scan_runs ORDER BY started_at DESC LIMIT 1`)

	var r ScanRun
	var bullish int
	err := row.Scan(&r.ID, &r.Benchmark, &r.RegimeLabel, &bullish,
		&r.StartedAt, &r.FinishedAt, &r.TickerCount, &r.SetupCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	r.IsBullish = bullish != 0
	return &r, nil
}

// SetupsForScan returns all setups of one scan, highest quality first.
func (s *SQLiteStore) SetupsForScan(ctx context.Context, scanID string) ([]models.Setup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, sector, setup_type, setup_date, entry, stop_loss,
			take_profit, risk_reward, path, resistance_level, volume_ratio,
			support_level, cci_today, cci_yesterday, relaxed, base_type,
			signal, quality_score, base_depth_pct, base_length,
			volume_dry_pct, rs_vs_benchmark, rs_blue_dot, watch_level,
			watch_price, distance_pct
		FROM setups WHERE scan_id = ?
		ORDER BY quality_score DESC, ticker`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query setups: %w", err)
	}
	defer rows.Close()

	var setups []models.Setup
	for rows.Next() {
		var st models.Setup
		var typ, path, baseType, signal, watchLevel string
		var relaxed, blueDot int
		if err := rows.Scan(&st.Ticker, &st.Sector, &typ, &st.SetupDate,
			&st.Entry, &st.StopLoss, &st.TakeProfit, &st.RiskReward, &path,
			&st.ResistanceLevel, &st.VolumeRatio, &st.SupportLevel,
			&st.CCIToday, &st.CCIYesterday, &relaxed, &baseType, &signal,
			&st.QualityScore, &st.BaseDepthPct, &st.BaseLength,
			&st.VolumeDryPct, &st.RSVsBenchmark, &blueDot, &watchLevel,
			&st.WatchPrice, &st.DistancePct); err != nil {
			return nil, fmt.Errorf("failed to scan setup row: %w", err)
		}
		st.Type = models.SetupType(typ)
		st.Path = models.BreakoutPath(path)
		st.BaseType = models.BaseType(baseType)
		st.Signal = models.BaseSignal(signal)
		st.WatchLevel = models.WatchLevel(watchLevel)
		st.Relaxed = relaxed != 0
		st.RSBlueDot = blueDot != 0
		setups = append(setups, st)
	}
	return setups, rows.Err()
}

// ZonesForTicker returns a ticker's zones from one scan, ascending by
// level.
func (s *SQLiteStore) ZonesForTicker(ctx context.Context, scanID, ticker string) ([]models.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, upper, lower, zone_type, atr
		FROM zones WHERE scan_id = ? AND ticker = ?
		ORDER BY level`, scanID, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zs []models.Zone
	for rows.Next() {
		var z models.Zone
		var typ string
		if err := rows.Scan(&z.Level, &z.Upper, &z.Lower, &typ, &z.ATR); err != nil {
			return nil, fmt.Errorf("failed to scan zone row: %w", err)
		}
		z.Type = models.ZoneType(typ)
		zs = append(zs, z)
	}
	return zs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
