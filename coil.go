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

// Package coil is the top-level entry point for the Coil configuration
// language: parsing source text or a file into a fully expanded
// tree.Struct, plus the handful of module-level helpers a caller reaches
// for without digging into the tree/parser/eval packages directly.
package coil

import (
	"github.com/coil-config/coil/coilerr"
	"github.com/coil-config/coil/eval"
	"github.com/coil-config/coil/parser"
	"github.com/coil-config/coil/resolver"
	"github.com/coil-config/coil/tree"
)

// Parse parses text and fully expands it: every "@extends", "@file",
// "@package", and deletion directive is resolved before Parse returns, the
// same as the reference implementation's combined parse() entry point. An
// "@file" or "@package" directive in text with no includes of its own
// fails with coilerr.ErrUnsupported wrapped in a StructError, since there
// is no base directory or package root to resolve it against; use
// ParseFile for source that includes other source.
func Parse(text string) (*tree.Struct, error) {
	return ParseWithResolver(text, noResolver{})
}

// ParseWithResolver parses text and expands it, loading any "@file"/
// "@package" directive through r.
func ParseWithResolver(text string, r resolver.Resolver) (*tree.Struct, error) {
	p := parser.New()
	root, err := p.Parse(text)
	if err != nil {
		return nil, err
	}
	ev := eval.New(r, p)
	if err := ev.Evaluate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// ParseFile parses the file at path and fully expands it, resolving
// "@file"/"@package" directives through r.
func ParseFile(path string, r resolver.Resolver) (*tree.Struct, error) {
	text, err := r.ResolveFile(path)
	if err != nil {
		return nil, err
	}
	return ParseWithResolver(text, r)
}

// ValidateKey reports whether s is a single legal key, with no path
// separators in it.
func ValidateKey(s string) bool {
	return tree.ValidateKey(s)
}

// ValidatePath reports whether s is a legal path: an absolute "@root..."
// form, a relative "."/".." form, or a bare dotted lookup.
func ValidatePath(s string) bool {
	return tree.ValidatePath(s)
}

// noResolver rejects every include, for source parsed with no filesystem
// or package root to resolve against.
type noResolver struct{}

func (noResolver) ResolveFile(path string) (string, error) {
	return "", coilerr.ErrUnsupported
}

func (noResolver) ResolvePackage(spec string) (string, error) {
	return "", coilerr.ErrUnsupported
}
