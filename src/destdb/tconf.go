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
package destdb

import (
	"fmt"
	"net/url"
)

type TargetConf struct {
	Host     string `mapstructure:"db-host" json:"host"`
	Port     int    `mapstructure:"db-port" json:"port"`
	User     string `mapstructure:"db-user" json:"user"`
	Password string `mapstructure:"db-password" json:"-"`
	DBName   string `mapstructure:"db-name" json:"db_name"`
	Schema   string `mapstructure:"db-schema" json:"schema"`
	SSLMode  string `mapstructure:"ssl-mode" json:"ssl_mode"`
	Uri      string `mapstructure:"uri" json:"-"`
}

func (t *TargetConf) Clone() *TargetConf {
	clone := *t
	return &clone
}

func (t *TargetConf) GetConnectionUri() string {
	if t.Uri == "" {
		hostAndPort := fmt.Sprintf("%s:%d", t.Host, t.Port)
		targetUrl := &url.URL{
			Scheme:   "postgresql",
			User:     url.UserPassword(t.User, t.Password),
			Host:     hostAndPort,
			Path:     t.DBName,
			RawQuery: t.sslQueryString(),
		}
		t.Uri = targetUrl.String()
	}
	return t.Uri
}

func (t *TargetConf) sslQueryString() string {
	if t.SSLMode == "" {
		t.SSLMode = "prefer"
	}
	return "sslmode=" + t.SSLMode
}

// SchemaName defaults to public when the config leaves it empty.
func (t *TargetConf) SchemaName() string {
	if t.Schema == "" {
		return "public"
	}
	return t.Schema
}
