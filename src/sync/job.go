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

// Package sync holds the synchronization core: fetch every source row, map
// each one to a destination record, skip the ones whose natural key already
// exists at the destination, insert the rest, and commit once.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/dsebd/imds-sync/src/config"
	"github.com/dsebd/imds-sync/src/destdb"
	"github.com/dsebd/imds-sync/src/errs"
	"github.com/dsebd/imds-sync/src/srcdb"
)

// Job syncs one table. Connections are established by the caller and
// injected; the job owns no process-wide state.
type Job struct {
	spec *config.TableSpec
	src  *srcdb.SourceDB
	dest *destdb.TargetDB
}

func NewJob(spec *config.TableSpec, src *srcdb.SourceDB, dest *destdb.TargetDB) *Job {
	return &Job{spec: spec, src: src, dest: dest}
}

// Run executes one complete sync pass for the job's table:
//
//	FETCH -> MAP_ALL -> preload keys -> FOR_EACH(check -> stage) -> COMMIT
//
// strictly sequential, stop-the-world on any failure. Every destination
// statement runs on one transaction; a failure anywhere before the final
// commit rolls back cleanly, so an aborted run leaves the destination
// untouched. The summary is returned in both outcomes, with Inserted=0
// whenever the commit did not happen.
func (j *Job) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{Table: j.spec.Name, StartedAt: time.Now()}
	err := j.run(ctx, summary)
	summary.FinishedAt = time.Now()
	if err != nil {
		summary.Error = err.Error()
	}
	return summary, err
}

func (j *Job) run(ctx context.Context, summary *RunSummary) error {
	rows, _, err := j.src.FetchAll(ctx, j.spec.SourceTable)
	if err != nil {
		return err
	}
	summary.Fetched = len(rows)

	records, err := mapAll(j.spec, rows)
	if err != nil {
		return err
	}
	summary.Prepared = len(records)
	log.Infof("prepared %d records for insertion into %s", len(records), j.spec.DestinationTable)

	discovered, err := j.dest.DiscoverColumns(ctx, j.spec.DestinationTable)
	if err != nil {
		return err
	}
	insertColumns, err := j.resolveInsertColumns(discovered)
	if err != nil {
		return err
	}

	tx, err := j.dest.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback sync transaction for table %s: %v", j.spec.Name, rbErr)
		}
	}()

	existing, err := j.preloadKeys(ctx, tx, j.keyColumnKinds(discovered))
	if err != nil {
		return err
	}

	staged := 0
	for _, record := range records {
		key := j.naturalKeyOf(record)
		if existing.Contains(key) {
			continue
		}
		values := lo.Map(insertColumns, func(col string, _ int) interface{} {
			return record[col]
		})
		if err := j.dest.InsertRow(ctx, tx, j.spec.DestinationTable, insertColumns, values); err != nil {
			return err
		}
		staged++
		if j.spec.DedupeWithinBatch {
			existing.Add(key)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewCommitError(j.spec.DestinationTable, err)
	}
	committed = true
	summary.Inserted = staged
	return nil
}

// resolveInsertColumns checks every column the table spec writes still
// exists on the reflected destination schema. Extra destination columns are
// fine; a missing mapped column aborts the run. The returned list is sorted
// so generated statements are deterministic.
func (j *Job) resolveInsertColumns(discovered []destdb.Column) ([]string, error) {
	insertColumns := j.spec.DestinationColumns()
	missing := lo.Filter(insertColumns, func(col string, _ int) bool {
		return !lo.ContainsBy(discovered, func(c destdb.Column) bool { return c.Name == col })
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("destination table %s is missing mapped columns %v",
			j.spec.DestinationTable, missing)
	}
	sort.Strings(insertColumns)
	return insertColumns, nil
}

// keyColumnKinds marks which natural-key fields are numeric destination
// columns. Key canonicalization applies numeric parsing only there, so a
// varchar key like an instrument code compares byte-for-byte.
func (j *Job) keyColumnKinds(discovered []destdb.Column) []bool {
	kinds := make([]bool, len(j.spec.NaturalKeyFields))
	for i, field := range j.spec.NaturalKeyFields {
		if col, found := lo.Find(discovered, func(c destdb.Column) bool { return c.Name == field }); found {
			kinds[i] = col.IsNumeric()
		}
	}
	return kinds
}

func (j *Job) preloadKeys(ctx context.Context, tx *sql.Tx, numericKeyFields []bool) (*keySet, error) {
	tuples, err := j.dest.FetchExistingKeys(ctx, tx, j.spec.DestinationTable, j.spec.NaturalKeyFields)
	if err != nil {
		return nil, err
	}
	set := newKeySet(j.spec.NullKeysMatch, numericKeyFields)
	for _, tuple := range tuples {
		set.Add(tuple)
	}
	return set, nil
}

func (j *Job) naturalKeyOf(record DestinationRow) []interface{} {
	key := make([]interface{}, len(j.spec.NaturalKeyFields))
	for i, field := range j.spec.NaturalKeyFields {
		key[i] = record[field]
	}
	return key
}
