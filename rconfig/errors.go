// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rconfig

import "fmt"

// Error describes a failure encountered while loading, merging, or binding
// configuration, naming the source and operation it occurred in so a
// misconfigured deployment is diagnosable from the error text alone.
type Error struct {
	Source    string // e.g. "source[0]", "binding"
	Field     string // optional: the specific field the error concerns
	Operation string // e.g. "load", "merge", "bind", "validate"
	Err       error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("rconfig: %s.%s during %s: %v", e.Source, e.Field, e.Operation, e.Err)
	}
	return fmt.Sprintf("rconfig: %s during %s: %v", e.Source, e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error. Named NewError so every caller in this package
// uses one consistent constructor (see DESIGN.md for the naming history).
func NewError(source, operation string, err error) *Error {
	return &Error{Source: source, Operation: operation, Err: err}
}

// NewFieldError builds an Error naming the specific field at fault.
func NewFieldError(source, field, operation string, err error) *Error {
	return &Error{Source: source, Field: field, Operation: operation, Err: err}
}
