//  Copyright (c) 2023 Uber Technologies, Inc.
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

// Package resolver defines the collaborator the evaluator calls out to for
// "@file" and "@package" include directives. The core never touches a
// filesystem, network, or any other I/O directly; it only knows this
// interface. See internal/coilfs for the concrete filesystem-backed
// implementation consumed by cmd/coil.
package resolver

// Resolver loads the raw Coil source text named by an include directive.
// Both methods return unparsed source; the caller (eval) is responsible for
// parsing and splicing the result into the including tree.
type Resolver interface {
	// ResolveFile returns the Coil source text found at path, which is
	// whatever a "@file" directive carried verbatim (resolving it relative
	// to some base is entirely up to the implementation).
	ResolveFile(path string) (string, error)

	// ResolvePackage returns the Coil source text named by spec, the
	// verbatim text of a "@package" directive ("pkg:resource" by
	// convention, but the interface does not enforce that shape).
	// Implementations that do not support package resolution return
	// coilerr.ErrUnsupported.
	ResolvePackage(spec string) (string, error)
}
