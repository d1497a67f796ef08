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
package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// Each --source-db-* / --target-db-* flag must resolve under its section's
// config key, with the flag prefix stripped rather than sliced by length.
func TestConnectionFlagsBindToConfigKeys(t *testing.T) {
	assert.Equal(t, "127.0.0.1", viper.GetString("source.db-host"))
	assert.Equal(t, 3306, viper.GetInt("source.db-port"))
	assert.Equal(t, "127.0.0.1", viper.GetString("target.db-host"))
	assert.Equal(t, 5432, viper.GetInt("target.db-port"))
	assert.Equal(t, "public", viper.GetString("target.db-schema"))
}
