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
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// keySeparator joins encoded key fields; nullSentinel stands in for NULL
// when null keys are configured to compare equal. Neither can collide with
// canonical scalar text.
const (
	keySeparator = "\x1f"
	nullSentinel = "\x00null"
)

// keySet holds the natural keys of every destination row, preloaded once
// per run. Membership replaces the per-candidate-row point lookup while
// preserving equality-on-all-key-fields semantics. numericField marks, per
// key field position, whether the destination column is numeric; only those
// fields get numeric canonicalization, so text keys like instrument codes
// keep leading zeros intact.
type keySet struct {
	keys          mapset.Set[string]
	nullKeysMatch bool
	numericField  []bool
}

func newKeySet(nullKeysMatch bool, numericField []bool) *keySet {
	return &keySet{
		keys:          mapset.NewThreadUnsafeSet[string](),
		nullKeysMatch: nullKeysMatch,
		numericField:  numericField,
	}
}

// encode canonicalizes one key tuple. ok=false means the tuple contains a
// NULL and nulls are configured to never match (SQL semantics): the row can
// neither be found present nor recorded for later matches.
func (ks *keySet) encode(keyValues []interface{}) (encoded string, ok bool) {
	parts := make([]string, len(keyValues))
	for i, v := range keyValues {
		if v == nil {
			if !ks.nullKeysMatch {
				return "", false
			}
			parts[i] = nullSentinel
			continue
		}
		parts[i] = canonicalScalar(v, i < len(ks.numericField) && ks.numericField[i])
	}
	return strings.Join(parts, keySeparator), true
}

func (ks *keySet) Contains(keyValues []interface{}) bool {
	encoded, ok := ks.encode(keyValues)
	if !ok {
		return false
	}
	return ks.keys.Contains(encoded)
}

func (ks *keySet) Add(keyValues []interface{}) {
	encoded, ok := ks.encode(keyValues)
	if !ok {
		return
	}
	ks.keys.Add(encoded)
}

func (ks *keySet) Cardinality() int {
	return ks.keys.Cardinality()
}

// canonicalScalar renders a scalar so that the same logical value encodes
// identically regardless of which driver produced it: timestamps normalize
// to UTC, integers keep their exact decimal form, and integral floats unify
// with them. Text values parse as numbers only when the destination column
// is numeric (a NUMERIC column may scan as text); in a text column "0012"
// and "12" are distinct keys and stay distinct.
func canonicalScalar(v interface{}, numeric bool) string {
	switch tv := v.(type) {
	case time.Time:
		return "t:" + tv.UTC().Format(time.RFC3339Nano)
	case int64:
		return canonicalInt(tv, numeric)
	case int:
		return canonicalInt(int64(tv), numeric)
	case float64:
		return canonicalFloat(tv, numeric)
	case float32:
		return canonicalFloat(float64(tv), numeric)
	case bool:
		return "b:" + strconv.FormatBool(tv)
	case []byte:
		if numeric {
			return canonicalNumericText(string(tv))
		}
		return "x:" + hex.EncodeToString(tv)
	case string:
		if numeric {
			return canonicalNumericText(tv)
		}
		return "s:" + tv
	default:
		return "s:" + fmt.Sprintf("%v", tv)
	}
}

func canonicalInt(i int64, numeric bool) string {
	if numeric {
		return "n:" + strconv.FormatInt(i, 10)
	}
	// A number stored in a text column compares as its decimal rendering.
	return "s:" + strconv.FormatInt(i, 10)
}

func canonicalFloat(f float64, numeric bool) string {
	prefix := "s:"
	if numeric {
		prefix = "n:"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<62 {
		return prefix + strconv.FormatInt(int64(f), 10)
	}
	return prefix + strconv.FormatFloat(f, 'g', -1, 64)
}

// canonicalNumericText parses a numeric column's textual scan form. Integers
// parse as int64 so values beyond float64's 2^53 integer range stay exact.
func canonicalNumericText(s string) string {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return "n:" + strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return canonicalFloat(f, true)
	}
	return "s:" + s
}
