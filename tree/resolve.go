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

package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coil-config/coil/coilerr"
)

// Get resolves path against s and returns its value: Links are
// transparently dereferenced, and "${...}" interpolation placeholders in
// the resolved String (or in every String nested inside a resolved List)
// are expanded eagerly, recursively, with cycle detection. A cycle raises
// StructError; a reference that can never be found raises KeyMissingError.
func (s *Struct) Get(path string) (Value, error) {
	return s.getCtx(path, map[string]bool{}, expandCtx{})
}

// GetOr is Get without the error return: it yields def if path cannot be
// resolved at all, for any reason.
func (s *Struct) GetOr(path string, def Value) Value {
	v, err := s.Get(path)
	if err != nil {
		return def
	}
	return v
}

// MustGet panics if path cannot be resolved. It exists for call sites that
// have already validated the path exists (tests, mostly).
func (s *Struct) MustGet(path string) Value {
	v, err := s.Get(path)
	if err != nil {
		panic(err)
	}
	return v
}

func (s *Struct) getCtx(path string, visiting map[string]bool, opts expandCtx) (Value, error) {
	v, owner, absPath, err := s.lookupRaw(path, visiting)
	if err != nil {
		return nil, err
	}
	v, owner, absPath, err = derefLinksRaw(v, owner, absPath, visiting)
	if err != nil {
		return nil, err
	}
	return owner.expandValue(v, absPath, visiting, opts)
}

// lookupRaw resolves path to its directly-stored Value, without
// dereferencing a Link found at the end and without expanding
// interpolation. It returns the owning Struct (whose entries map directly
// holds the returned value) and the value's canonical absolute path,
// both used for cycle detection and error reporting by callers.
func (s *Struct) lookupRaw(path string, visiting map[string]bool) (Value, *Struct, string, error) {
	pp, err := parsePathStr(path)
	if err != nil {
		return nil, nil, "", err
	}
	return s.lookupParsed(pp, path, visiting)
}

func (s *Struct) lookupParsed(pp parsedPath, origPath string, visiting map[string]bool) (Value, *Struct, string, error) {
	var cur *Struct
	switch {
	case pp.Absolute:
		cur = s.Root()
	case pp.UpLevels >= 0:
		cur = s
		for i := 0; i < pp.UpLevels; i++ {
			if cur.container == nil {
				return nil, nil, "", &coilerr.KeyMissingError{Path: s.Path(), Key: origPath}
			}
			cur = cur.container
		}
	}

	if len(pp.Segments) == 0 {
		if cur == nil {
			return nil, nil, "", &coilerr.KeyValueError{Reason: "path has no key segment: " + quoteForError(origPath)}
		}
		return cur, cur.container, cur.Path(), nil
	}

	first := pp.Segments[0]
	var owner *Struct
	var val Value

	if pp.bare() {
		search := s
		for {
			if v, ok := search.rawEntry(first); ok {
				owner = search
				val = v
				break
			}
			if search.container == nil {
				return nil, nil, "", &coilerr.KeyMissingError{Path: s.Path(), Key: origPath}
			}
			search = search.container
		}
	} else {
		v, ok := cur.rawEntry(first)
		if !ok {
			return nil, nil, "", &coilerr.KeyMissingError{Path: cur.Path(), Key: origPath}
		}
		owner, val = cur, v
	}

	absPath := joinPath(owner.Path(), first)

	for _, seg := range pp.Segments[1:] {
		dv, _, dabs, err := derefLinksRaw(val, owner, absPath, visiting)
		if err != nil {
			return nil, nil, "", err
		}
		st, ok := dv.(*Struct)
		if !ok {
			return nil, nil, "", &coilerr.KeyMissingError{Path: dabs, Key: seg}
		}
		nv, ok := st.rawEntry(seg)
		if !ok {
			return nil, nil, "", &coilerr.KeyMissingError{Path: st.Path(), Key: seg}
		}
		val, owner, absPath = nv, st, joinPath(st.Path(), seg)
	}

	return val, owner, absPath, nil
}

// ResolveStruct navigates path structurally (no interpolation expansion)
// and requires the final value, after transparent link dereferencing, to
// be a Struct. It is used for @extends targets and @file sub-key
// extraction, where the result must remain a container rather than being
// read as a leaf value.
func (s *Struct) ResolveStruct(path string) (*Struct, error) {
	visiting := map[string]bool{}
	v, owner, absPath, err := s.lookupRaw(path, visiting)
	if err != nil {
		return nil, err
	}
	v, _, absPath, err = derefLinksRaw(v, owner, absPath, visiting)
	if err != nil {
		return nil, err
	}
	st, ok := v.(*Struct)
	if !ok {
		return nil, &coilerr.StructError{Path: absPath, Msg: "@extends target is not a struct"}
	}
	return st, nil
}

// resolveContainerAndLeaf finds the Struct that directly holds (or would
// hold) the final segment of path, and that segment's key, without
// requiring the entry itself to exist. Used by Delete.
func (s *Struct) resolveContainerAndLeaf(path string, visiting map[string]bool) (*Struct, string, error) {
	pp, err := parsePathStr(path)
	if err != nil {
		return nil, "", err
	}
	if len(pp.Segments) == 0 {
		return nil, "", &coilerr.KeyValueError{Reason: "path has no key segment: " + quoteForError(path)}
	}
	leaf := pp.Segments[len(pp.Segments)-1]
	head := pp
	head.Segments = pp.Segments[:len(pp.Segments)-1]

	if len(head.Segments) == 0 {
		_, owner, _, err := s.lookupParsed(pp, path, visiting)
		if err != nil {
			return nil, "", err
		}
		return owner, leaf, nil
	}

	v, owner, absPath, err := s.lookupParsed(head, path, visiting)
	if err != nil {
		return nil, "", err
	}
	v, owner, absPath, err = derefLinksRaw(v, owner, absPath, visiting)
	if err != nil {
		return nil, "", err
	}
	st, ok := v.(*Struct)
	if !ok {
		return nil, "", &coilerr.KeyMissingError{Path: absPath, Key: leaf}
	}
	return st, leaf, nil
}

// derefLinksRaw follows a chain of Links starting at val (owned by owner,
// stored at absPath) until it reaches a non-Link value, detecting cycles
// along the way. A Link's target path is resolved relative to owner: the
// Struct that currently holds the Link, determined live rather than
// captured at construction time (see Link's doc comment).
func derefLinksRaw(val Value, owner *Struct, absPath string, visiting map[string]bool) (Value, *Struct, string, error) {
	var marked []string
	defer func() {
		for _, k := range marked {
			delete(visiting, k)
		}
	}()
	for {
		lk, ok := val.(*Link)
		if !ok {
			return val, owner, absPath, nil
		}
		key := "link@" + absPath
		if visiting[key] {
			return nil, nil, "", &coilerr.StructError{Path: absPath, Msg: "cycle detected while resolving link"}
		}
		visiting[key] = true
		marked = append(marked, key)
		nv, nowner, nabs, err := owner.lookupRaw(lk.Path, visiting)
		if err != nil {
			return nil, nil, "", err
		}
		val, owner, absPath = nv, nowner, nabs
	}
}

// expandCtx carries the options for one top-level Expand call through
// every recursive getCtx/expandValue/expandString invocation it triggers.
type expandCtx struct {
	defaults    map[string]Value
	ignoreAll   bool
	ignoreNames map[string]bool
	strictNone  bool
}

func (c expandCtx) shouldIgnore(path string) bool {
	return c.ignoreAll || c.ignoreNames[path]
}

// IgnoreMissing selects which unresolved interpolation references Expand
// should leave untouched (as literal "${path}" text) rather than erroring
// on. The zero value ignores nothing.
type IgnoreMissing struct {
	All   bool
	Names []string
}

func (im IgnoreMissing) toCtx() (bool, map[string]bool) {
	if len(im.Names) == 0 {
		return im.All, nil
	}
	set := make(map[string]bool, len(im.Names))
	for _, n := range im.Names {
		set[n] = true
	}
	return im.All, set
}

// expandValue expands a directly-stored (already link-dereferenced) value
// for a read: a String is passed through interpolation expansion, a List
// has the same treatment applied to each element, everything else is
// returned unchanged.
func (owner *Struct) expandValue(v Value, absPath string, visiting map[string]bool, opts expandCtx) (Value, error) {
	switch vv := v.(type) {
	case String:
		key := "str@" + absPath
		if visiting[key] {
			return nil, &coilerr.StructError{Path: absPath, Msg: "cycle detected while expanding string interpolation"}
		}
		visiting[key] = true
		out, err := owner.expandString(string(vv), visiting, opts)
		delete(visiting, key)
		return out, err
	case *List:
		out := make([]Value, len(vv.Elems))
		for i, e := range vv.Elems {
			ev, eowner, eabs, err := derefLinksRaw(e, owner, fmt.Sprintf("%s[%d]", absPath, i), visiting)
			if err != nil {
				return nil, err
			}
			rv, err := eowner.expandValue(ev, eabs, visiting, opts)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return &List{Elems: out}, nil
	default:
		return v, nil
	}
}

// expandString scans raw for "${path}" placeholders and substitutes the
// stringified result of resolving path against owner, recursing through
// getCtx so that a substituted value which itself contains placeholders is
// expanded too ("expansion is idempotent"), bounded by the shared visiting
// set.
func (owner *Struct) expandString(raw string, visiting map[string]bool, opts expandCtx) (Value, error) {
	var out strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				out.WriteByte(raw[i])
				i++
				continue
			}
			placeholder := raw[i : i+2+end+1]
			refPath := strings.TrimSpace(raw[i+2 : i+2+end])
			i += 2 + end + 1

			val, err := owner.getCtx(refPath, visiting, opts)
			if err != nil {
				if _, isMissing := err.(*coilerr.KeyMissingError); isMissing {
					if dv, ok := opts.defaults[refPath]; ok {
						val = dv
					} else if opts.shouldIgnore(refPath) {
						out.WriteString(placeholder)
						continue
					} else {
						return nil, err
					}
				} else {
					return nil, err
				}
			}
			str, err := stringifyForInterp(val, opts.strictNone)
			if err != nil {
				return nil, err
			}
			out.WriteString(str)
			continue
		}
		out.WriteByte(raw[i])
		i++
	}
	return String(out.String()), nil
}

func stringifyForInterp(v Value, strictNone bool) (string, error) {
	switch vv := v.(type) {
	case Null:
		if strictNone {
			return "None", nil
		}
		return "", nil
	case Bool:
		if bool(vv) {
			return "True", nil
		}
		return "False", nil
	case Int:
		return strconv.FormatInt(int64(vv), 10), nil
	case Float:
		return FormatFloat(float64(vv)), nil
	case String:
		return string(vv), nil
	default:
		return "", &coilerr.StructError{Msg: "cannot interpolate a " + v.Kind().String() + " value"}
	}
}

// FormatFloat renders f the way Coil's canonical form does: always with a
// decimal point, even for whole numbers ("2.0", not "2").
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Expand mutates s in place, recursively, replacing every Link with a
// deep copy of its fully dereferenced target and every String with its
// fully expanded value: "full expansion", as opposed to the per-read
// expansion Get already performs transparently. defaults supplies
// substitution values for placeholder names that resolve to no real
// struct entry anywhere; ignoreMissing controls which remaining
// unresolved placeholders are left as literal text rather than raising
// KeyMissingError.
func (s *Struct) Expand(defaults map[string]Value, ignoreMissing IgnoreMissing) error {
	all, names := ignoreMissing.toCtx()
	opts := expandCtx{defaults: defaults, ignoreAll: all, ignoreNames: names}
	return s.expandInPlace(opts)
}

func (s *Struct) expandInPlace(opts expandCtx) error {
	for _, k := range s.Keys() {
		raw, _ := s.rawEntry(k)
		switch rv := raw.(type) {
		case *Link:
			v, err := s.getCtx(k, map[string]bool{}, opts)
			if err != nil {
				return err
			}
			// The resolved target may still be owned by its original
			// container elsewhere in the tree; copy it in rather than
			// stealing it via setRaw's reparenting.
			s.setRaw(k, copyValue(v))
		case String:
			v, err := s.getCtx(k, map[string]bool{}, opts)
			if err != nil {
				return err
			}
			s.setRaw(k, v)
		case *List:
			v, err := s.getCtx(k, map[string]bool{}, opts)
			if err != nil {
				return err
			}
			s.setRaw(k, v)
		case *Struct:
			if err := rv.expandInPlace(opts); err != nil {
				return err
			}
		}
	}
	return nil
}
