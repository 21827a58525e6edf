package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"busao-tracker/internal/normalize"
	"busao-tracker/internal/vehicle"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps one snapshot table per vehicle class plus the line and
// route-shape reference tables. The replace runs inside a single
// transaction, so readers see either the old cycle or the new one,
// never an empty or mixed set.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	p := &Postgres{db: db}
	if err := p.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot_bus (
			id TEXT PRIMARY KEY,
			plate TEXT NOT NULL DEFAULT '',
			linha TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			speed DOUBLE PRECISION NOT NULL,
			reported_at TIMESTAMPTZ NOT NULL,
			heading DOUBLE PRECISION,
			stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_brt (LIKE snapshot_bus INCLUDING ALL)`,
		`CREATE INDEX IF NOT EXISTS snapshot_bus_linha_idx ON snapshot_bus (linha)`,
		`CREATE INDEX IF NOT EXISTS snapshot_brt_linha_idx ON snapshot_brt (linha)`,
		`CREATE TABLE IF NOT EXISTS lines (
			numero TEXT NOT NULL,
			nome TEXT NOT NULL,
			modo TEXT NOT NULL,
			busca_numero TEXT NOT NULL,
			busca_nome TEXT NOT NULL,
			PRIMARY KEY (numero, modo)
		)`,
		`CREATE TABLE IF NOT EXISTS route_shape_points (
			linha TEXT NOT NULL,
			shape_index INT NOT NULL,
			pt_sequence INT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (linha, shape_index, pt_sequence)
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func snapshotTable(class vehicle.Class) (string, error) {
	switch class {
	case vehicle.ClassBus:
		return "snapshot_bus", nil
	case vehicle.ClassBRT:
		return "snapshot_brt", nil
	}
	return "", fmt.Errorf("unknown vehicle class %q", class)
}

const insertChunk = 500

func (p *Postgres) ReplaceSnapshot(ctx context.Context, class vehicle.Class, recs []vehicle.Record) error {
	table, err := snapshotTable(class)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for start := 0; start < len(recs); start += insertChunk {
		end := start + insertChunk
		if end > len(recs) {
			end = len(recs)
		}
		chunk := recs[start:end]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO ` + table +
			` (id, plate, linha, latitude, longitude, speed, reported_at, heading) VALUES `)
		args := make([]any, 0, len(chunk)*8)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteByte(',')
			}
			base := i * 8
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
			var heading sql.NullFloat64
			if r.Heading != nil {
				heading = sql.NullFloat64{Float64: *r.Heading, Valid: true}
			}
			args = append(args, r.ID, r.Plate, r.Linha, r.Latitude, r.Longitude, r.Speed, r.Timestamp, heading)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (p *Postgres) Snapshot(ctx context.Context, class vehicle.Class, linhas []string) ([]vehicle.Record, error) {
	if len(linhas) == 0 {
		return nil, nil
	}
	table, err := snapshotTable(class)
	if err != nil {
		return nil, err
	}
	trimmed := make([]string, 0, len(linhas))
	for _, l := range linhas {
		trimmed = append(trimmed, strings.TrimSpace(l))
	}
	q := `SELECT id, plate, linha, latitude, longitude, speed, reported_at, heading, stored_at
	      FROM ` + table + ` WHERE linha = ANY($1)`
	rows, err := p.db.QueryContext(ctx, q, trimmed)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []vehicle.Record
	for rows.Next() {
		var r vehicle.Record
		var heading sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Plate, &r.Linha, &r.Latitude, &r.Longitude, &r.Speed, &r.Timestamp, &heading, &r.StoredAt); err != nil {
			return nil, err
		}
		if heading.Valid {
			h := heading.Float64
			r.Heading = &h
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) SearchLines(ctx context.Context, q string, modo vehicle.Class, limit int) ([]vehicle.Line, error) {
	q = normalize.ForSearch(strings.TrimSpace(q))
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 15
	}
	query := `SELECT numero, nome, modo FROM lines
	          WHERE (busca_numero LIKE '%' || $1 || '%' OR busca_nome LIKE '%' || $1 || '%')`
	args := []any{q}
	if modo != "" {
		query += ` AND modo = $2`
		args = append(args, string(modo))
	}
	query += fmt.Sprintf(` ORDER BY numero ASC LIMIT %d`, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var out []vehicle.Line
	for rows.Next() {
		var l vehicle.Line
		var modoS string
		if err := rows.Scan(&l.Numero, &l.Nome, &modoS); err != nil {
			return nil, err
		}
		l.Modo = vehicle.Class(modoS)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) RouteShapes(ctx context.Context, linhas []string) (map[string][]vehicle.Polyline, error) {
	out := make(map[string][]vehicle.Polyline)
	if len(linhas) == 0 {
		return out, nil
	}
	trimmed := make([]string, 0, len(linhas))
	for _, l := range linhas {
		trimmed = append(trimmed, strings.TrimSpace(l))
	}
	q := `SELECT linha, shape_index, latitude, longitude
	      FROM route_shape_points WHERE linha = ANY($1)
	      ORDER BY linha, shape_index, pt_sequence`
	rows, err := p.db.QueryContext(ctx, q, trimmed)
	if err != nil {
		return nil, fmt.Errorf("query route shapes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var linha string
		var idx int
		var pt vehicle.Point
		if err := rows.Scan(&linha, &idx, &pt.Lat, &pt.Lon); err != nil {
			return nil, err
		}
		shapes := out[linha]
		for len(shapes) <= idx {
			shapes = append(shapes, vehicle.Polyline{})
		}
		shapes[idx] = append(shapes[idx], pt)
		out[linha] = shapes
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error { return p.db.Close() }
