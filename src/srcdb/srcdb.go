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

// Package srcdb is the read-only side of a sync run: one MySQL connection,
// one SELECT * per table, the whole result materialized in memory.
package srcdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"

	"github.com/dsebd/imds-sync/src/errs"
)

// SourceRow is one fetched record keyed by the exact, case-sensitive source
// column names. Values are normalized scalars: int64, float64, string,
// time.Time, []byte or nil.
type SourceRow map[string]interface{}

type SourceDB struct {
	source *Source

	db *sql.DB
}

func NewSourceDB(s *Source) *SourceDB {
	return &SourceDB{source: s}
}

// NewSourceDBWithConn wraps an already-established connection. Used by tests
// and by callers that manage connection establishment themselves.
func NewSourceDBWithConn(s *Source, db *sql.DB) *SourceDB {
	return &SourceDB{source: s, db: db}
}

func (sdb *SourceDB) Connect() error {
	db, err := sql.Open("mysql", sdb.source.GetConnectionUri())
	if err != nil {
		return errs.NewConnectionError("source", err)
	}
	sdb.db = db
	return nil
}

func (sdb *SourceDB) Disconnect() {
	if sdb.db == nil {
		return
	}
	err := sdb.db.Close()
	if err != nil {
		log.Errorf("failed to close connection to the source db: %v", err)
	}
}

func (sdb *SourceDB) CheckConnection(ctx context.Context) error {
	err := sdb.db.PingContext(ctx)
	if err != nil {
		return errs.NewConnectionError("source", err)
	}
	return nil
}

// FetchAll reads the complete table in one pass and returns every row plus
// the column name list in result-set order. There is no paging and no
// incremental cursor; each run re-reads the entire source table. Any error
// aborts with nothing partial returned.
func (sdb *SourceDB) FetchAll(ctx context.Context, tableName string) ([]SourceRow, []string, error) {
	query := fmt.Sprintf("SELECT * FROM %s", tableName)
	log.Infof("executing query on source: %s", query)

	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errs.NewQueryError("source", query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errs.NewQueryError("source", query, err)
	}

	var fetched []SourceRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanDests := make([]interface{}, len(columns))
		for i := range values {
			scanDests[i] = &values[i]
		}
		err = rows.Scan(scanDests...)
		if err != nil {
			return nil, nil, errs.NewQueryError("source", query, err)
		}
		row := make(SourceRow, len(columns))
		for i, col := range columns {
			row[col] = normalizeScalar(values[i])
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errs.NewQueryError("source", query, err)
	}

	log.Infof("fetched %d records from source table %s", len(fetched), tableName)
	return fetched, columns, nil
}

// normalizeScalar reduces driver-specific scan results to the small value
// vocabulary the mapper and key encoder understand. MySQL returns most
// non-numeric columns as []byte; those become strings.
func normalizeScalar(v interface{}) interface{} {
	switch tv := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(tv)
	case time.Time:
		return tv
	case int64, float64, string, bool:
		return tv
	case int:
		return int64(tv)
	case int32:
		return int64(tv)
	case float32:
		return float64(tv)
	default:
		return fmt.Sprintf("%v", tv)
	}
}
