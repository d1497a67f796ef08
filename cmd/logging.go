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
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dsebd/imds-sync/src/config"
)

type logFormatter struct{}

var levelList = []string{
	"PANIC",
	"FATAL",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

func (f *logFormatter) Format(entry *log.Entry) ([]byte, error) {
	level := levelList[int(entry.Level)]
	fileName := filepath.Base(entry.Caller.File)
	// Example log line:
	// 2024-11-02 09:14:05 INFO job.go:71 prepared 312 records for insertion into imds_mk_istats
	msg := fmt.Sprintf("%s %s %s:%d %s\n",
		entry.Time.Format("2006-01-02 15:04:05"), level,
		fileName, entry.Caller.Line, entry.Message)
	return []byte(msg), nil
}

// InitLogging redirects log messages to ${logDir}/imds-sync.log, rotated by
// size with a bounded number of backups kept.
func InitLogging(logDir string) {
	logFileName := filepath.Join(logDir, "imds-sync.log")

	logRotator := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    10, // 10 MB log size before rotation
		MaxBackups: 5,  // Allow upto 5 logs at once before deleting oldest logs.
	}
	log.SetOutput(logRotator)

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&logFormatter{})
	log.Info("Logging initialised.")
	redactPasswordFromArgs()
	log.Infof("Args: %v", os.Args)
}

func redactPasswordFromArgs() {
	for i := 0; i < len(os.Args)-1; i++ {
		opt := os.Args[i]
		if opt == "--source-db-password" || opt == "--target-db-password" {
			os.Args[i+1] = "XXX"
		}
	}
}
