/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	applog "zonecanvas/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned by Repository.Get for unknown ids.
var ErrNotFound = errors.New("composition not found")

// Composition is the listing projection of a published composition.
type Composition struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject,omitempty"`
	Elements  int       `json:"elements"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores published compositions.
type Repository interface {
	Create(ctx context.Context, c Composition, payload []byte) error
	List(ctx context.Context, limit int) ([]Composition, error)
	Get(ctx context.Context, id uuid.UUID) (Composition, []byte, error)
	Ping(ctx context.Context) error
}

// PGRepository implements Repository on Postgres through pgx's database/sql driver.
type PGRepository struct {
	DB *sql.DB
}

// OpenPG opens and pings dsn, then applies the embedded migrations.
func OpenPG(ctx context.Context, dsn string) (*PGRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGRepository{DB: db}, nil
}

func (r *PGRepository) Close() error { return r.DB.Close() }

func (r *PGRepository) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

// dialect=PostgreSQL
const insertCompositionSQL = `INSERT INTO compositions(id, name, subject, elements, payload, created_at) VALUES($1, $2, $3, $4, $5, $6)`

// dialect=PostgreSQL
const listCompositionsSQL = `SELECT id, name, subject, elements, created_at FROM compositions ORDER BY created_at DESC, id LIMIT $1`

// dialect=PostgreSQL
const getCompositionSQL = `SELECT id, name, subject, elements, created_at, payload FROM compositions WHERE id = $1`

func (r *PGRepository) Create(ctx context.Context, c Composition, payload []byte) error {
	_, err := r.DB.ExecContext(ctx, insertCompositionSQL, c.ID, c.Name, c.Subject, c.Elements, string(payload), c.CreatedAt)
	return err
}

func (r *PGRepository) List(ctx context.Context, limit int) ([]Composition, error) {
	rows, err := r.DB.QueryContext(ctx, listCompositionsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	list := []Composition{}
	for rows.Next() {
		var c Composition
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.Elements, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Composition, []byte, error) {
	var (
		c       Composition
		payload []byte
	)
	err := r.DB.QueryRowContext(ctx, getCompositionSQL, id).Scan(&c.ID, &c.Name, &c.Subject, &c.Elements, &c.CreatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Composition{}, nil, ErrNotFound
	}
	if err != nil {
		return Composition{}, nil, err
	}
	return c, payload, nil
}

// applyMigrations applies embedded SQL migrations in filename order, each in
// its own transaction together with its schema_migrations row.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithComponent("backend")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
