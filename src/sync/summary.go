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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// RunSummary is the per-run tally: counts per stage, timestamps and the
// terminal error if the run aborted. It is emitted to the log and console
// whatever the outcome and never persisted anywhere else.
type RunSummary struct {
	Table      string    `json:"table"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Prepared   int       `json:"prepared"`
	Inserted   int       `json:"inserted"`
	Error      string    `json:"error,omitempty"`
}

func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *RunSummary) Succeeded() bool {
	return s.Error == ""
}

// Emit writes the summary as one JSON log line and a human console report.
func (s *RunSummary) Emit() {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Errorf("marshal run summary for table %s: %v", s.Table, err)
	} else {
		log.Infof("run summary: %s", string(payload))
	}

	fmt.Printf("table %s: fetched=%s prepared=%s inserted=%s in %s\n",
		s.Table,
		humanize.Comma(int64(s.Fetched)),
		humanize.Comma(int64(s.Prepared)),
		humanize.Comma(int64(s.Inserted)),
		s.Duration().Round(time.Millisecond))
	if s.Error != "" {
		color.Red("table %s: sync aborted: %s", s.Table, s.Error)
	} else if s.Inserted == 0 {
		fmt.Printf("table %s: no new records to insert\n", s.Table)
	} else {
		color.Green("table %s: inserted %s new records", s.Table, humanize.Comma(int64(s.Inserted)))
	}
}
