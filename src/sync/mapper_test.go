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
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsebd/imds-sync/src/errs"
	"github.com/dsebd/imds-sync/src/srcdb"
)

func TestMapRowCopiesEveryMappedField(t *testing.T) {
	spec := tradesSpec()
	ts := time.Date(2024, 11, 2, 15, 0, 0, 0, time.UTC)
	row := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": int64(100),
		"TRD_TOTAL_VOLUME": int64(5000),
		"TRD_TOTAL_VALUE":  2500.5,
		"TRD_LM_DATE_TIME": ts,
	}

	record, err := mapRow(spec, row, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), record["trd_total_trades"])
	assert.Equal(t, int64(5000), record["trd_total_volume"])
	assert.Equal(t, 2500.5, record["trd_total_value"])
	assert.Equal(t, ts, record["trd_lm_date_time"])
}

func TestMapRowGeneratesFreshIdentityPerRow(t *testing.T) {
	spec := tradesSpec()
	ts := time.Date(2024, 11, 2, 15, 0, 0, 0, time.UTC)
	row := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": int64(100),
		"TRD_TOTAL_VOLUME": int64(5000),
		"TRD_TOTAL_VALUE":  2500.5,
		"TRD_LM_DATE_TIME": ts,
	}

	first, err := mapRow(spec, row, 0)
	require.NoError(t, err)
	second, err := mapRow(spec, row, 1)
	require.NoError(t, err)

	firstID, ok := first["id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(firstID)
	assert.NoError(t, err, "identity must be a valid UUID")
	assert.NotEqual(t, first["id"], second["id"],
		"identical source rows still get distinct identities")
}

func TestMapRowNullValueIsNotAMissingField(t *testing.T) {
	spec := tradesSpec()
	row := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": nil,
		"TRD_TOTAL_VOLUME": int64(5000),
		"TRD_TOTAL_VALUE":  2500.5,
		"TRD_LM_DATE_TIME": time.Now(),
	}

	record, err := mapRow(spec, row, 0)
	require.NoError(t, err)
	assert.Nil(t, record["trd_total_trades"])
}

func TestMapAllStopsAtFirstMissingField(t *testing.T) {
	spec := tradesSpec()
	good := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": int64(100),
		"TRD_TOTAL_VOLUME": int64(5000),
		"TRD_TOTAL_VALUE":  2500.5,
		"TRD_LM_DATE_TIME": time.Now(),
	}
	bad := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": int64(101),
	}

	records, err := mapAll(spec, []srcdb.SourceRow{good, bad})
	require.Error(t, err)
	assert.Nil(t, records)

	var mapErr errs.MappingError
	require.True(t, errors.As(err, &mapErr))
	assert.NotEmpty(t, mapErr.SourceColumn())
	assert.Contains(t, err.Error(), "row 1")
}

func TestMapAllWithoutIdentity(t *testing.T) {
	spec := tradesSpec()
	spec.GenerateIdentity = false
	row := srcdb.SourceRow{
		"TRD_TOTAL_TRADES": int64(100),
		"TRD_TOTAL_VOLUME": int64(5000),
		"TRD_TOTAL_VALUE":  2500.5,
		"TRD_LM_DATE_TIME": time.Now(),
	}

	records, err := mapAll(spec, []srcdb.SourceRow{row})
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, hasID := records[0]["id"]
	assert.False(t, hasID)
	assert.Len(t, records[0], 4)
}
