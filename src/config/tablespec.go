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
package config

import (
	"fmt"

	"github.com/samber/lo"
)

// TableSpec describes one table-to-table sync: which source table to read,
// which destination table to write, how source columns rename to destination
// columns, and which destination columns form the natural key used to decide
// "already synced".
type TableSpec struct {
	Name             string            `mapstructure:"name" json:"name"`
	SourceTable      string            `mapstructure:"source-table" json:"source_table"`
	DestinationTable string            `mapstructure:"destination-table" json:"destination_table"`
	NaturalKeyFields []string          `mapstructure:"natural-key-fields" json:"natural_key_fields"`
	FieldMapping     map[string]string `mapstructure:"field-mapping" json:"field_mapping"`

	// GenerateIdentity assigns IdentityColumn = fresh random UUID per mapped
	// row. The identity is opaque and never participates in de-duplication.
	GenerateIdentity bool   `mapstructure:"generate-identity" json:"generate_identity"`
	IdentityColumn   string `mapstructure:"identity-column" json:"identity_column"`

	// DedupeWithinBatch controls whether a staged insert is visible to the
	// existence check for later rows of the same run. true collapses in-run
	// natural-key duplicates to a single insert; false inserts all of them,
	// matching a checker that cannot observe uncommitted same-run writes.
	DedupeWithinBatch bool `mapstructure:"dedupe-within-batch" json:"dedupe_within_batch"`

	// NullKeysMatch decides the comparison semantics of NULL natural-key
	// fields. false follows SQL (NULL never equals NULL, so a null-key row
	// always inserts); true lets NULLs compare equal to each other.
	NullKeysMatch bool `mapstructure:"null-keys-match" json:"null_keys_match"`
}

func (t *TableSpec) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table spec: 'name' is required")
	}
	if t.SourceTable == "" {
		return fmt.Errorf("table spec %q: 'source-table' is required", t.Name)
	}
	if t.DestinationTable == "" {
		return fmt.Errorf("table spec %q: 'destination-table' is required", t.Name)
	}
	if len(t.FieldMapping) == 0 {
		return fmt.Errorf("table spec %q: 'field-mapping' must have at least one entry", t.Name)
	}
	if len(t.NaturalKeyFields) == 0 {
		return fmt.Errorf("table spec %q: 'natural-key-fields' must have at least one entry", t.Name)
	}
	destColumns := lo.Values(t.FieldMapping)
	for _, keyField := range t.NaturalKeyFields {
		if !lo.Contains(destColumns, keyField) {
			return fmt.Errorf("table spec %q: natural key field %q is not a mapped destination column",
				t.Name, keyField)
		}
	}
	if t.GenerateIdentity {
		if t.IdentityColumn == "" {
			return fmt.Errorf("table spec %q: 'identity-column' is required when 'generate-identity' is set", t.Name)
		}
		if lo.Contains(t.NaturalKeyFields, t.IdentityColumn) {
			return fmt.Errorf("table spec %q: identity column %q must not be a natural key field", t.Name, t.IdentityColumn)
		}
	}
	return nil
}

// DestinationColumns returns every destination column the spec writes,
// identity column included.
func (t *TableSpec) DestinationColumns() []string {
	cols := lo.Values(t.FieldMapping)
	if t.GenerateIdentity {
		cols = append(cols, t.IdentityColumn)
	}
	return cols
}

// DefaultTableSpecs returns the two table syncs this tool shipped with:
// market instrument statistics and the day trade summary.
func DefaultTableSpecs() []TableSpec {
	return []TableSpec{
		{
			Name:              "mkistat",
			SourceTable:       "MKISTAT",
			DestinationTable:  "imds_mk_istats",
			NaturalKeyFields:  []string{"mkstat_instrument_code", "mkstat_lm_date_time"},
			GenerateIdentity:  true,
			IdentityColumn:    "uuid",
			DedupeWithinBatch: false,
			FieldMapping: map[string]string{
				"MKISTAT_INSTRUMENT_CODE":        "mkstat_instrument_code",
				"MKISTAT_INSTRUMENT_NUMBER":      "mkstat_instrument_number",
				"MKISTAT_QUOTE_BASES":            "mkstat_quote_bases",
				"MKISTAT_OPEN_PRICE":             "mkstat_open_price",
				"MKISTAT_PUB_LAST_TRADED_PRICE":  "mkstat_pub_last_trade_price",
				"MKISTAT_SPOT_LAST_TRADED_PRICE": "mkstat_spot_last_trade_price",
				"MKISTAT_HIGH_PRICE":             "mkstat_high_price",
				"MKISTAT_LOW_PRICE":              "mkstat_low_price",
				"MKISTAT_CLOSE_PRICE":            "mkstat_close_price",
				"MKISTAT_YDAY_CLOSE_PRICE":       "mkstat_yday_close_price",
				"MKISTAT_TOTAL_TRADES":           "mkstat_total_trades",
				"MKISTAT_TOTAL_VOLUME":           "mkstat_total_volume",
				"MKISTAT_TOTAL_VALUE":            "mkstat_total_value",
				"MKISTAT_PUBLIC_TOTAL_TRADES":    "mkstat_public_total_trades",
				"MKISTAT_PUBLIC_TOTAL_VOLUME":    "mkstat_public_total_volume",
				"MKISTAT_PUBLIC_TOTAL_VALUE":     "mkstat_public_total_value",
				"MKISTAT_SPOT_TOTAL_TRADES":      "mkstat_spot_total_trades",
				"MKISTAT_SPOT_TOTAL_VOLUME":      "mkstat_spot_total_volume",
				"MKISTAT_SPOT_TOTAL_VALUE":       "mkstat_spot_total_value",
				"MKISTAT_LM_DATE_TIME":           "mkstat_lm_date_time",
			},
		},
		{
			Name:              "trd",
			SourceTable:       "TRD",
			DestinationTable:  "imds_trds",
			NaturalKeyFields:  []string{"trd_total_trades", "trd_lm_date_time"},
			GenerateIdentity:  true,
			IdentityColumn:    "id",
			DedupeWithinBatch: false,
			FieldMapping: map[string]string{
				"TRD_TOTAL_TRADES": "trd_total_trades",
				"TRD_TOTAL_VOLUME": "trd_total_volume",
				"TRD_TOTAL_VALUE":  "trd_total_value",
				"TRD_LM_DATE_TIME": "trd_lm_date_time",
			},
		},
	}
}
