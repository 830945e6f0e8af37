// Package migrate applies the SQL schema and optional seed files to Postgres.
// Migrations are flat NNNN_name.up.sql / NNNN_name.down.sql pairs; each file runs in
// one transaction together with its bookkeeping row.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"jamaat.org/internal/obs"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// ErrNothingToRollback is returned by Down when no migration has been applied.
var ErrNothingToRollback = errors.New("migrate: no migrations applied")

//go:embed sql/*.sql
var embedded embed.FS

// Schema returns the migrations shipped with the binary.
func Schema() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Applied is one row of the bookkeeping table.
type Applied struct {
	Name      string
	AppliedAt time.Time
}

type Manager struct {
	db          *sql.DB
	migrations  fs.FS
	seeds       fs.FS
	schemaTable string
	seedTable   string
	now         func() time.Time
}

type Option func(*Manager)

// WithTables overrides the bookkeeping table names.
func WithTables(schema, seeds string) Option {
	return func(m *Manager) {
		if schema != "" {
			m.schemaTable = schema
		}
		if seeds != "" {
			m.seedTable = seeds
		}
	}
}

// WithSeeds sets where Seed reads from. Without it Seed is a no-op.
func WithSeeds(seeds fs.FS) Option {
	return func(m *Manager) { m.seeds = seeds }
}

// NewManager builds a Manager. A nil migrations filesystem means Schema().
func NewManager(db *sql.DB, migrations fs.FS, opts ...Option) *Manager {
	if migrations == nil {
		migrations = Schema()
	}
	m := &Manager{
		db:          db,
		migrations:  migrations,
		schemaTable: "schema_migrations",
		seedTable:   "schema_seeds",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every pending migration in name order.
func (m *Manager) Up(ctx context.Context) error {
	n, err := m.applyAll(ctx, m.migrations, upSuffix, m.schemaTable)
	if err != nil {
		return err
	}
	if n > 0 {
		obs.Logger().Info().Int("applied", n).Msg("schema migrated")
	}
	return nil
}

// Seed applies seed files that have not run yet.
func (m *Manager) Seed(ctx context.Context) error {
	if m.seeds == nil {
		return nil
	}
	n, err := m.applyAll(ctx, m.seeds, ".sql", m.seedTable)
	if err != nil {
		return err
	}
	obs.Logger().Info().Int("applied", n).Msg("seeds applied")
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	applied, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return ErrNothingToRollback
	}
	last := applied[len(applied)-1].Name
	down := strings.TrimSuffix(last, upSuffix) + downSuffix
	if _, err := fs.Stat(m.migrations, down); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	forget := fmt.Sprintf(`delete from %s where name = $1`, m.schemaTable)
	err = m.runFile(ctx, m.migrations, down, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, forget, last)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback %s: %w", last, err)
	}
	obs.Logger().Info().Str("migration", last).Msg("migration rolled back")
	return nil
}

// Status lists applied migrations, oldest first.
func (m *Manager) Status(ctx context.Context) ([]Applied, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name, applied_at from %s order by applied_at, name`, m.schemaTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Name, &a.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (m *Manager) applyAll(ctx context.Context, fsys fs.FS, suffix, table string) (int, error) {
	if err := m.ensureTables(ctx); err != nil {
		return 0, err
	}
	done, err := m.appliedNames(ctx, table)
	if err != nil {
		return 0, err
	}
	names, err := listFiles(fsys, suffix)
	if err != nil {
		return 0, err
	}
	record := fmt.Sprintf(`insert into %s (name, applied_at) values ($1, $2)`, table)
	applied := 0
	for _, name := range names {
		if done[name] {
			continue
		}
		err := m.runFile(ctx, fsys, name, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, record, name, m.now().UTC())
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		obs.Logger().Debug().Str("file", name).Msg("sql file applied")
		applied++
	}
	return applied, nil
}

// runFile executes every statement of name and then book in the same transaction.
func (m *Manager) runFile(ctx context.Context, fsys fs.FS, name string, book func(*sql.Tx) error) error {
	body, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if err := book(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.schemaTable, m.seedTable} {
		ddl := fmt.Sprintf(`create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		)`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

func (m *Manager) appliedNames(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

// listFiles returns the names in the root of fsys ending in suffix, sorted.
func listFiles(fsys fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		if suffix == ".sql" && strings.HasSuffix(e.Name(), downSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements cuts a script on semicolons outside quotes, -- comments and
// $$ bodies. Blank statements are dropped.
func splitStatements(script string) []string {
	var (
		stmts   []string
		cur     strings.Builder
		quoted  bool
		dollar  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
			} else {
				continue
			}
		case !quoted && !dollar && c == '-' && i+1 < len(script) && script[i+1] == '-':
			comment = true
			continue
		case !dollar && c == '\'':
			quoted = !quoted
		case !quoted && c == '$' && i+1 < len(script) && script[i+1] == '$':
			dollar = !dollar
			cur.WriteString("$$")
			i++
			continue
		case !quoted && !dollar && c == ';':
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return stmts
}
