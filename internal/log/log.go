// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log is the package-level structured logger used throughout crust.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel sets the global log verbosity. name is one of
// "debug", "info", "warn", "error".
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return
	}
	base.SetLevel(lvl)
}

// SetDebug is shorthand for SetLevel("debug"), used by -verbose.
func SetDebug() {
	base.SetLevel(logrus.DebugLevel)
}

func Debug(format string, args ...interface{}) {
	base.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	base.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	base.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	base.Errorf(format, args...)
}

// WithField returns an entry pre-populated with a single structured field,
// for call sites that want to attach an id (entity name, SCC index, run id)
// to a burst of related log lines.
func WithField(key string, value interface{}) *logrus.Entry {
	return base.WithField(key, value)
}

// WithFields is the multi-field form of WithField.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}
