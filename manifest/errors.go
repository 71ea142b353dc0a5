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

package manifest

import "fmt"

// ManifestError reports a file-scoped problem found while building the
// Services table. The process must fail to start when one occurs.
type ManifestError struct {
	File string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest: %s: %v", e.File, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

func newManifestError(file string, format string, args ...any) *ManifestError {
	return &ManifestError{File: file, Err: fmt.Errorf(format, args...)}
}
