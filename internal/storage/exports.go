/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Export sources recorded in the history.
const (
	SourceClipboard = "clipboard"
	SourceFile      = "file"
	SourcePublish   = "publish"
)

// ExportRecord is one row of the export history.
type ExportRecord struct {
	ID       int64
	TS       time.Time
	Source   string
	Elements int
	Payload  []byte
}

// language=SQL
// dialect=SQLite
const insertExportSQL = `INSERT INTO exports(ts, payload, source, elements) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestExportSQL = `SELECT id, ts, source, elements, payload FROM exports ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listExportsSQL = `SELECT id, ts, source, elements, payload FROM exports ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneExportsSQL = `DELETE FROM exports WHERE id NOT IN (
	SELECT id FROM exports ORDER BY ts DESC, id DESC LIMIT ?
)`

// RecordExport stores an exported interchange document with its source and element count.
func RecordExport(ctx context.Context, ph *ProjectHandle, payload []byte, source string, elements int, ts time.Time) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if source == "" {
		source = SourceClipboard
	}
	db, err := InitOrOpenHistory(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertExportSQL, ts.UTC().Format(time.RFC3339Nano), payload, source, elements)
	return err
}

// LatestExport returns the most recent export or nil if none was recorded.
func LatestExport(ctx context.Context, ph *ProjectHandle) (*ExportRecord, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenHistory(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rec, err := scanExport(db.QueryRowContext(ctx, selectLatestExportSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListExports returns up to limit most recent exports, newest first.
func ListExports(ctx context.Context, ph *ProjectHandle, limit int) ([]ExportRecord, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenHistory(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listExportsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ExportRecord
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneExports keeps only the newest keepLast exports and returns the number deleted.
func PruneExports(ctx context.Context, ph *ProjectHandle, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast < 0 {
		keepLast = 0
	}
	db, err := InitOrOpenHistory(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneExportsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(r rowScanner) (ExportRecord, error) {
	var (
		rec   ExportRecord
		tsStr string
	)
	if err := r.Scan(&rec.ID, &tsStr, &rec.Source, &rec.Elements, &rec.Payload); err != nil {
		return ExportRecord{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
		rec.TS = ts
	}
	return rec, nil
}
