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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestHistoryInitCreatesWALAndMetaVersion(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenHistory(root)
	if err != nil {
		t.Fatalf("InitOrOpenHistory: %v", err)
	}
	defer db.Close()
	if _, err := os.Stat(HistoryPath(root)); err != nil {
		t.Fatalf("history file missing: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','exports')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected 3 tables, got %d", cnt)
	}
	var schema int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d, got %d", schemaVersion, schema)
	}
}

func TestHistoryRequiresRoot(t *testing.T) {
	if _, err := InitOrOpenHistory(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

// An older database (schema=1) gains the source/elements columns and the ts index.
func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	root := t.TempDir()
	path := HistoryPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mk .zc: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE exports (id INTEGER PRIMARY KEY AUTOINCREMENT, ts TEXT NOT NULL, payload BLOB NOT NULL);`,
		`INSERT INTO exports(ts, payload) VALUES('2020-01-01T00:00:00Z', '[]');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	db.Close()

	mdb, err := InitOrOpenHistory(root)
	if err != nil {
		t.Fatalf("InitOrOpenHistory: %v", err)
	}
	defer mdb.Close()
	var schema int
	if err := mdb.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != 2 {
		t.Fatalf("expected schema 2 after migration, got %d", schema)
	}
	var source string
	if err := mdb.QueryRowContext(ctx, `SELECT source FROM exports LIMIT 1`).Scan(&source); err != nil {
		t.Fatalf("read migrated row: %v", err)
	}
	if source != SourceClipboard {
		t.Fatalf("expected default source, got %q", source)
	}
	var cnt int
	if err := mdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_exports_ts'`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected ts index after migration")
	}
}

func TestRecoverHistoryOnCorruption(t *testing.T) {
	root := t.TempDir()
	path := HistoryPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mk .zc: %v", err)
	}
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, JUST SOME BYTES THAT ARE LONG ENOUGH TO LOOK LIKE A HEADER"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	recovered, err := RecoverHistory(ctx, root)
	if err != nil {
		t.Fatalf("RecoverHistory: %v", err)
	}
	if !recovered {
		t.Fatalf("expected recovery to occur")
	}
	ents, _ := os.ReadDir(filepath.Join(root, HistoryDirName, "backups"))
	if len(ents) == 0 {
		t.Fatalf("expected damaged file moved to backups")
	}
	// A healthy database is left alone.
	again, err := RecoverHistory(ctx, root)
	if err != nil || again {
		t.Fatalf("expected no recovery on healthy db, got %v %v", again, err)
	}
}
