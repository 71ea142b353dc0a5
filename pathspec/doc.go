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

// Package pathspec implements the route path grammar shared by the
// manifest loader and the HTTP/URL-builder components: parsing a route
// template into its colon-normalized form, matching inbound paths against
// it, compiling parameter maps back into concrete paths, and building
// outbound URLs.
package pathspec
