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

// Package eval implements the Coil evaluator: the pass that walks a freshly
// parsed tree.Struct and resolves every pending "@extends", deletion,
// "@file", and "@package" directive, leaving a tree with no pending
// directives left anywhere in it. Link and string-interpolation resolution
// happen lazily on Struct.Get and are not this package's concern.
package eval

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/coil-config/coil/coilerr"
	"github.com/coil-config/coil/resolver"
	"github.com/coil-config/coil/tree"
)

// Parser is the subset of the parser package's API this package needs, kept
// as an interface (rather than a direct import of *parser.Parser) so that
// eval and parser can each be tested without constructing the other. The
// root "coil" package wires a real *parser.Parser in.
type Parser interface {
	Parse(src string) (*tree.Struct, error)
}

// state tags a struct's position in one Evaluate call's PARSED -> EXPANDING
// -> EXPANDED lifecycle. The zero value for an unvisited struct is parsed.
type state int

const (
	parsed state = iota
	expanding
	expanded
)

// Evaluator applies pending directives against a resolver used to load
// "@file" and "@package" source text.
type Evaluator struct {
	Resolver resolver.Resolver
	Parser   Parser
}

// New returns an Evaluator that loads includes through r and parses them
// with p.
func New(r resolver.Resolver, p Parser) *Evaluator {
	return &Evaluator{Resolver: r, Parser: p}
}

// Evaluate expands every pending directive in root's tree, recursively,
// in place.
func (e *Evaluator) Evaluate(root *tree.Struct) error {
	return e.evalTree(root, map[*tree.Struct]state{})
}

// evalTree applies s's own pending directives, then recurses into every
// direct child struct of s (including ones that FillFrom introduced while
// applying s's own extends).
func (e *Evaluator) evalTree(s *tree.Struct, st map[*tree.Struct]state) error {
	if err := e.ownExpand(s, st); err != nil {
		return err
	}
	for _, v := range s.RawValues() {
		child, ok := v.(*tree.Struct)
		if !ok {
			continue
		}
		if err := e.evalTree(child, st); err != nil {
			return err
		}
	}
	return nil
}

// ownExpand applies only s's own pending "@file"/"@package"/"@extends"/
// deletion lists, leaving any child structs' pending lists untouched: that
// split is what lets an "@extends" target be expanded precisely, on
// demand, without forcing a full recursive walk of its ancestor chain
// (which would risk a false cycle when two structs extend through each
// other's descendants).
func (e *Evaluator) ownExpand(s *tree.Struct, st map[*tree.Struct]state) error {
	switch st[s] {
	case expanded:
		return nil
	case expanding:
		return &coilerr.StructError{Path: s.Path(), Msg: "circular @extends"}
	}
	st[s] = expanding

	for _, fd := range s.PendingFiles() {
		if err := e.applyFile(s, fd, st); err != nil {
			return err
		}
	}
	for _, spec := range s.PendingPackages() {
		if err := e.applyPackage(s, spec, st); err != nil {
			return err
		}
	}
	// Multiple extends sources override left-to-right in source order (a
	// later source wins over an earlier one on conflict, local bindings
	// win over both). FillFrom only fills gaps, so to get that priority
	// out of a sequence of gap-fills the sources must be applied in
	// reverse: the last-listed source fills gaps first, leaving the
	// earlier ones only the gaps it didn't already fill.
	extends := s.PendingExtends()
	for i := len(extends) - 1; i >= 0; i-- {
		if err := e.applyExtends(s, extends[i], st); err != nil {
			return err
		}
	}

	var delErr error
	for _, path := range s.PendingDeletions() {
		if err := s.Delete(path); err != nil {
			delErr = multierr.Append(delErr, err)
		}
	}
	if delErr != nil {
		return delErr
	}

	s.ClearPending()
	st[s] = expanded
	return nil
}

// applyExtends resolves one "@extends" source path and fills s's gaps from
// it. The path's resolution base depends on which grammar form produced it:
// an old-style directive ("key: { @extends: path }") writes path inside s's
// own body, so it resolves lexically starting at s itself; a new-style
// sugar form ("key: path1, path2 { ... }") writes path in s's container's
// body alongside key, so it resolves starting at s's container.
func (e *Evaluator) applyExtends(s *tree.Struct, pe tree.PendingExtends, st map[*tree.Struct]state) error {
	base := s
	if pe.FromParent {
		base = s.Container()
	}
	target, err := base.ResolveStruct(pe.Path)
	if err != nil {
		return err
	}
	if target == s {
		return &coilerr.StructError{Path: s.Path(), Msg: "struct cannot extend itself"}
	}
	for anc := s.Container(); anc != nil; anc = anc.Container() {
		if anc == target {
			return &coilerr.StructError{Path: s.Path(), Msg: "struct cannot extend its own ancestor"}
		}
	}
	if err := e.ownExpand(target, st); err != nil {
		return err
	}
	s.FillFrom(target)
	return nil
}

// applyFile loads and parses the source named by fd, evaluates it fully
// (so a chain of includes is itself fully resolved before being spliced
// in), and fills s's gaps from either the whole result or, for the
// "[path, subkey]" form, just its named sub-struct.
func (e *Evaluator) applyFile(s *tree.Struct, fd tree.FileDirective, st map[*tree.Struct]state) error {
	src, err := e.Resolver.ResolveFile(fd.Path)
	if err != nil {
		return &coilerr.StructError{Path: s.Path(), Msg: fmt.Sprintf("@file %q", fd.Path), Err: err}
	}
	included, err := e.parseAndEvaluate(src)
	if err != nil {
		return &coilerr.StructError{Path: s.Path(), Msg: fmt.Sprintf("@file %q", fd.Path), Err: err}
	}
	if fd.SubKey == "" {
		s.FillFrom(included)
		return nil
	}
	sub, err := included.ResolveStruct(fd.SubKey)
	if err != nil {
		return &coilerr.StructError{Path: s.Path(), Msg: fmt.Sprintf("@file %q sub-key %q", fd.Path, fd.SubKey), Err: err}
	}
	s.FillFrom(sub)
	return nil
}

// applyPackage loads and fills s's gaps from the whole resource named by a
// "@package" directive. A resolver that does not support packages makes
// this a StructError rather than a panic, per the core's "resolver may
// refuse" contract.
func (e *Evaluator) applyPackage(s *tree.Struct, spec string, st map[*tree.Struct]state) error {
	src, err := e.Resolver.ResolvePackage(spec)
	if err != nil {
		return &coilerr.StructError{Path: s.Path(), Msg: fmt.Sprintf("@package %q", spec), Err: err}
	}
	included, err := e.parseAndEvaluate(src)
	if err != nil {
		return &coilerr.StructError{Path: s.Path(), Msg: fmt.Sprintf("@package %q", spec), Err: err}
	}
	s.FillFrom(included)
	return nil
}

func (e *Evaluator) parseAndEvaluate(src string) (*tree.Struct, error) {
	parsed, err := e.Parser.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := e.Evaluate(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
