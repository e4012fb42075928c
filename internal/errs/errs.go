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

// Package errs wraps github.com/pkg/errors with the project's preferred
// call shape: a printf-style message plus a wrapped cause.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Wrap annotates err with msg, preserving a stack trace at the call site.
// A nil err returns nil, matching errors.Wrap.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is the printf form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New is errors.New, re-exported so callers only need to import this
// package for both wrapping and constructing errors.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf builds a new error with a stack trace, without wrapping a cause.
func Errorf(format string, args ...interface{}) error {
	return errors.New(fmt.Sprintf(format, args...))
}

// Cause unwraps err to its root cause, as errors.Cause does.
func Cause(err error) error {
	return errors.Cause(err)
}
