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

// Package errs defines the error kinds a sync run can terminate with.
// Every run failure is one of: ConnectionError, QueryError, MappingError
// or CommitError. All of them are caught at the job boundary, logged with
// context and terminate the run; nothing is retried by the job itself.
package errs

import "fmt"

type ConnectionError struct {
	store string // "source" or "destination"
	err   error
}

func (e ConnectionError) Store() string {
	return e.store
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s store: %s", e.store, e.err.Error())
}

func (e ConnectionError) Unwrap() error {
	return e.err
}

func NewConnectionError(store string, err error) ConnectionError {
	return ConnectionError{store: store, err: err}
}

type QueryError struct {
	store string
	query string
	err   error
}

func (e QueryError) Query() string {
	return e.query
}

func (e QueryError) Error() string {
	return fmt.Sprintf("query on %s store: %q: %s", e.store, e.query, e.err.Error())
}

func (e QueryError) Unwrap() error {
	return e.err
}

func NewQueryError(store string, query string, err error) QueryError {
	return QueryError{store: store, query: query, err: err}
}

type MappingError struct {
	sourceColumn string
	sourceTable  string
	rowNum       int
}

func (e MappingError) SourceColumn() string {
	return e.sourceColumn
}

func (e MappingError) Error() string {
	return fmt.Sprintf("map row %d of table %s: source column %q absent from fetched row",
		e.rowNum, e.sourceTable, e.sourceColumn)
}

func NewMappingError(sourceTable string, rowNum int, sourceColumn string) MappingError {
	return MappingError{sourceTable: sourceTable, rowNum: rowNum, sourceColumn: sourceColumn}
}

type CommitError struct {
	table string
	err   error
}

func (e CommitError) Error() string {
	return fmt.Sprintf("commit inserts into %s: %s", e.table, e.err.Error())
}

func (e CommitError) Unwrap() error {
	return e.err
}

func NewCommitError(table string, err error) CommitError {
	return CommitError{table: table, err: err}
}
