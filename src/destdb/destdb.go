/*
Copyright (c) the imds-sync authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package destdb is the write side of a sync run: one PostgreSQL connection,
// destination schema discovery, natural-key preload and transactional
// single-commit inserts.
package destdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/dsebd/imds-sync/src/errs"
)

type TargetDB struct {
	tconf *TargetConf

	db *sql.DB
}

func NewTargetDB(tconf *TargetConf) *TargetDB {
	return &TargetDB{tconf: tconf}
}

// NewTargetDBWithConn wraps an already-established connection. Used by tests
// and by callers that manage connection establishment themselves.
func NewTargetDBWithConn(tconf *TargetConf, db *sql.DB) *TargetDB {
	return &TargetDB{tconf: tconf, db: db}
}

func (tdb *TargetDB) Connect() error {
	db, err := sql.Open("pgx", tdb.tconf.GetConnectionUri())
	if err != nil {
		return errs.NewConnectionError("destination", err)
	}
	tdb.db = db
	return nil
}

func (tdb *TargetDB) Disconnect() {
	if tdb.db == nil {
		return
	}
	err := tdb.db.Close()
	if err != nil {
		log.Errorf("failed to close connection to the destination db: %v", err)
	}
}

func (tdb *TargetDB) CheckConnection(ctx context.Context) error {
	err := tdb.db.PingContext(ctx)
	if err != nil {
		return errs.NewConnectionError("destination", err)
	}
	return nil
}

// Column is one destination column as reflected from information_schema.
type Column struct {
	Name     string
	DataType string
}

// IsNumeric reports whether the column holds a numeric type. Natural-key
// canonicalization parses textual scan values as numbers only for these
// columns, so text keys keep their exact form.
func (c Column) IsNumeric() bool {
	switch c.DataType {
	case "smallint", "integer", "bigint", "numeric", "decimal", "real", "double precision":
		return true
	}
	return false
}

// DiscoverColumns reflects the live destination table from
// information_schema at run start. The job tolerates destination schema
// additions; it only requires that the columns it writes still exist.
func (tdb *TargetDB) DiscoverColumns(ctx context.Context, tableName string) ([]Column, error) {
	query := `SELECT column_name, data_type FROM information_schema.columns ` +
		`WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`
	rows, err := tdb.db.QueryContext(ctx, query, tdb.tconf.SchemaName(), tableName)
	if err != nil {
		return nil, errs.NewQueryError("destination", query, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, errs.NewQueryError("destination", query, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewQueryError("destination", query, err)
	}
	if len(columns) == 0 {
		return nil, errs.NewQueryError("destination", query,
			fmt.Errorf("table %s.%s has no columns or does not exist", tdb.tconf.SchemaName(), tableName))
	}
	log.Infof("discovered %d columns on destination table %s", len(columns), tableName)
	return columns, nil
}

// Begin opens the single transaction a run stages every insert on. All key
// preloads and inserts for one run happen on this transaction so that the
// final commit is atomic.
func (tdb *TargetDB) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := tdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.NewConnectionError("destination", err)
	}
	return tx, nil
}

// FetchExistingKeys reads the natural-key tuple of every row currently in
// the destination table, in one query. The caller encodes the tuples into a
// membership set; this replaces a per-source-row point lookup while keeping
// the same equality semantics.
func (tdb *TargetDB) FetchExistingKeys(ctx context.Context, tx *sql.Tx, tableName string, keyColumns []string) ([][]interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(keyColumns, ", "), tableName)
	log.Infof("preloading existing natural keys: %s", query)

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.NewQueryError("destination", query, err)
	}
	defer rows.Close()

	var keys [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(keyColumns))
		scanDests := make([]interface{}, len(keyColumns))
		for i := range values {
			scanDests[i] = &values[i]
		}
		if err := rows.Scan(scanDests...); err != nil {
			return nil, errs.NewQueryError("destination", query, err)
		}
		keys = append(keys, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewQueryError("destination", query, err)
	}
	log.Infof("destination table %s holds %d existing keys", tableName, len(keys))
	return keys, nil
}

// InsertRow stages one row on the run transaction. The row is not visible
// outside the transaction until Commit.
func (tdb *TargetDB) InsertRow(ctx context.Context, tx *sql.Tx, tableName string, columns []string, values []interface{}) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	_, err := tx.ExecContext(ctx, query, values...)
	if err != nil {
		return errs.NewQueryError("destination", query, err)
	}
	return nil
}
