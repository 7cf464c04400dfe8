package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
	"github.com/Fantasim/truthserum/internal/source"
)

// Info describes the stored dataset without loading it.
type Info struct {
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
	SnapshotCount int       `json:"snapshot_count"`
	TicketCount   int       `json:"ticket_count"`
}

// Name identifies the store as a dataset source.
func (s *Store) Name() string {
	return config.SourceSnapshot
}

// Save replaces the stored dataset with ds in a single transaction.
func (s *Store) Save(ctx context.Context, ds *models.Dataset) error {
	start := time.Now()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"level_readings", "tickets", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	levelStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO level_readings (seq, timestamp, cauldron_id, level) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare level insert: %w", err)
	}
	defer levelStmt.Close()

	rows := 0
	for seq, snap := range ds.Snapshots {
		for id, level := range snap.Levels {
			if _, err := levelStmt.ExecContext(ctx, seq, snap.Timestamp, id, level); err != nil {
				return fmt.Errorf("insert level reading %d/%s: %w", seq, id, err)
			}
			rows++
			if rows%config.DBInsertBatch == 0 {
				slog.Debug("snapshot save progress", "levelRows", rows)
			}
		}
	}

	ticketStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tickets (seq, ticket_id, cauldron_id, courier_id, date, amount_collected) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ticket insert: %w", err)
	}
	defer ticketStmt.Close()

	for seq, t := range ds.Tickets {
		if _, err := ticketStmt.ExecContext(ctx, seq, t.TicketID, t.CauldronID, t.CourierID, t.Date, t.ReportedAmount); err != nil {
			return fmt.Errorf("insert ticket %s: %w", t.TicketID, err)
		}
	}

	var metaJSON sql.NullString
	if ds.Metadata != nil {
		raw, err := ds.Metadata.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(raw), Valid: true}
	}

	fetchedAt := ds.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, source, fetched_at, snapshot_count, metadata_json) VALUES (1, ?, ?, ?, ?)`,
		ds.Source, fetchedAt.UTC().Format(time.RFC3339Nano), len(ds.Snapshots), metaJSON,
	); err != nil {
		return fmt.Errorf("insert snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot save: %w", err)
	}

	slog.Info("snapshot saved",
		"path", s.path,
		"snapshots", len(ds.Snapshots),
		"levelRows", rows,
		"tickets", len(ds.Tickets),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// Fetch loads the stored dataset. Returns ErrSnapshotEmpty when nothing has
// been saved yet.
func (s *Store) Fetch(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()

	var (
		src       string
		fetchedAt string
		count     int
		metaJSON  sql.NullString
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT source, fetched_at, snapshot_count, metadata_json FROM snapshot_meta WHERE id = 1`,
	).Scan(&src, &fetchedAt, &count, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", config.ErrSnapshotEmpty, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}

	ds := &models.Dataset{Source: s.Name()}
	if ts, err := time.Parse(time.RFC3339Nano, fetchedAt); err == nil {
		ds.FetchedAt = ts
	}

	if metaJSON.Valid {
		meta, err := source.ParseMetadata([]byte(metaJSON.String))
		if err != nil {
			slog.Warn("stored metadata unreadable, continuing without it", "error", err)
		} else {
			ds.Metadata = meta
		}
	}

	if ds.Snapshots, err = s.loadSnapshots(ctx, count); err != nil {
		return nil, err
	}
	if ds.Tickets, err = s.loadTickets(ctx); err != nil {
		return nil, err
	}

	slog.Info("snapshot loaded",
		"path", s.path,
		"originalSource", src,
		"snapshots", len(ds.Snapshots),
		"tickets", len(ds.Tickets),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return ds, nil
}

// Stat returns a summary of the stored dataset.
func (s *Store) Stat(ctx context.Context) (*Info, error) {
	var (
		info      Info
		fetchedAt string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT source, fetched_at, snapshot_count, (SELECT COUNT(*) FROM tickets) FROM snapshot_meta WHERE id = 1`,
	).Scan(&info.Source, &fetchedAt, &info.SnapshotCount, &info.TicketCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", config.ErrSnapshotEmpty, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}
	info.FetchedAt, _ = time.Parse(time.RFC3339Nano, fetchedAt)
	return &info, nil
}

func (s *Store) loadSnapshots(ctx context.Context, count int) ([]models.LevelSnapshot, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT seq, timestamp, cauldron_id, level FROM level_readings ORDER BY seq, cauldron_id`)
	if err != nil {
		return nil, fmt.Errorf("query level readings: %w", err)
	}
	defer rows.Close()

	bySeq := make(map[int]*models.LevelSnapshot, count)
	for rows.Next() {
		var (
			seq   int
			ts    string
			id    string
			level float64
		)
		if err := rows.Scan(&seq, &ts, &id, &level); err != nil {
			return nil, fmt.Errorf("scan level reading: %w", err)
		}
		snap, ok := bySeq[seq]
		if !ok {
			snap = &models.LevelSnapshot{Timestamp: ts, Levels: make(map[string]float64)}
			bySeq[seq] = snap
		}
		snap.Levels[id] = level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate level readings: %w", err)
	}

	seqs := make([]int, 0, len(bySeq))
	for seq := range bySeq {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	out := make([]models.LevelSnapshot, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, *bySeq[seq])
	}
	return out, nil
}

func (s *Store) loadTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT ticket_id, cauldron_id, courier_id, date, amount_collected FROM tickets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.TicketID, &t.CauldronID, &t.CourierID, &t.Date, &t.ReportedAmount); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return out, nil
}

var _ source.Source = (*Store)(nil)
