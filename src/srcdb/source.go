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
package srcdb

import (
	"fmt"
	"net/url"
)

type Source struct {
	Host     string `mapstructure:"db-host" json:"host"`
	Port     int    `mapstructure:"db-port" json:"port"`
	User     string `mapstructure:"db-user" json:"user"`
	Password string `mapstructure:"db-password" json:"-"`
	DBName   string `mapstructure:"db-name" json:"db_name"`
	Uri      string `mapstructure:"uri" json:"-"`
}

func (s *Source) Clone() *Source {
	clone := *s
	return &clone
}

// GetConnectionUri returns a go-sql-driver DSN. parseTime is forced on so
// DATETIME/TIMESTAMP columns scan as time.Time rather than []byte.
func (s *Source) GetConnectionUri() string {
	if s.Uri == "" {
		s.Uri = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			s.User, url.QueryEscape(s.Password), s.Host, s.Port, s.DBName)
	}
	return s.Uri
}
