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
package sync

import (
	"github.com/google/uuid"

	"github.com/dsebd/imds-sync/src/config"
	"github.com/dsebd/imds-sync/src/errs"
	"github.com/dsebd/imds-sync/src/srcdb"
)

// DestinationRow is one record ready for insert, keyed by destination column
// names.
type DestinationRow map[string]interface{}

// mapRow copies every field-mapping source column into its destination
// column. A source column absent from the fetched row (NULL values are
// present, just nil) is a MappingError, fatal to the whole run. When the
// spec asks for a synthetic identity, a fresh random UUID is assigned; it
// carries no business meaning and is never consulted for de-duplication.
func mapRow(spec *config.TableSpec, row srcdb.SourceRow, rowNum int) (DestinationRow, error) {
	record := make(DestinationRow, len(spec.FieldMapping)+1)
	for srcCol, destCol := range spec.FieldMapping {
		value, ok := row[srcCol]
		if !ok {
			return nil, errs.NewMappingError(spec.SourceTable, rowNum, srcCol)
		}
		record[destCol] = value
	}
	if spec.GenerateIdentity {
		record[spec.IdentityColumn] = uuid.NewString()
	}
	return record, nil
}

func mapAll(spec *config.TableSpec, rows []srcdb.SourceRow) ([]DestinationRow, error) {
	records := make([]DestinationRow, 0, len(rows))
	for i, row := range rows {
		record, err := mapRow(spec, row, i)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
