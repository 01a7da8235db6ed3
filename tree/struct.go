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
	"reflect"

	"github.com/coil-config/coil/coilerr"
)

// Struct is an ordered key/value container: the sole composite node of the
// Coil tree, doubling as the root when its container is nil. A child
// Struct value is owned by exactly one container at a time; assigning an
// already-attached Struct elsewhere detaches it from its previous parent
// (see setRaw), matching the "exclusive ownership" rule in the core data
// model.
type Struct struct {
	container      *Struct
	keyInContainer string

	order   []string
	entries map[string]Value

	// pendingExtends and pendingDeletions hold directive paths collected by
	// the parser, in source order, not yet applied by the evaluator. Once
	// applied they are cleared; see AddExtends/AddExtendsFromParent/
	// AddDeletion/ClearPending.
	pendingExtends   []PendingExtends
	pendingDeletions []string
	pendingFiles     []FileDirective
	pendingPackages  []string
}

// PendingExtends is one not-yet-applied @extends target collected by the
// parser, along with the struct the path must be resolved relative to.
//
// The old-style directive form ("key: { @extends: path }") writes path
// inside the extending struct's own body, so path resolves relative to
// that struct itself (FromParent false). The new-style sugar form
// ("key: path1, path2 { ... }") writes path in the *container's* body
// alongside key, so path resolves relative to the container (FromParent
// true).
type PendingExtends struct {
	Path       string
	FromParent bool
}

// FileDirective is one @file directive collected by the parser: either a
// whole-file include (SubKey == "") or an include of just one top-level
// key of the included file's root (the "@file: [path \"key\"]" form).
type FileDirective struct {
	Path   string
	SubKey string
}

// NewStruct returns a new, empty, unattached Struct.
func NewStruct() *Struct {
	return &Struct{entries: map[string]Value{}}
}

// Kind implements Value.
func (*Struct) Kind() Kind { return KindStruct }
func (*Struct) coilValue() {}

// String gives a short debug form; it is not the canonical textual form
// (see package print for that).
func (s *Struct) String() string {
	return fmt.Sprintf("Struct(%s, %d keys)", s.Path(), s.Len())
}

// Container returns the Struct that directly holds s, or nil if s is
// currently a root.
func (s *Struct) Container() *Struct { return s.container }

// Root walks up through containers and returns the topmost Struct.
func (s *Struct) Root() *Struct {
	cur := s
	for cur.container != nil {
		cur = cur.container
	}
	return cur
}

// Path returns the canonical absolute path of s: "@root" if s is currently
// a root, "@root.a.b" otherwise.
func (s *Struct) Path() string {
	if s.container == nil {
		return "@root"
	}
	return joinPath(s.container.Path(), s.keyInContainer)
}

func joinPath(containerPath, key string) string {
	if containerPath == "@root" {
		return "@root." + key
	}
	return containerPath + "." + key
}

// Len returns the number of direct entries.
func (s *Struct) Len() int { return len(s.order) }

// Keys returns the direct entry keys in insertion order.
func (s *Struct) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// RawValues returns the direct entry values, unexpanded, in key order.
func (s *Struct) RawValues() []Value {
	out := make([]Value, len(s.order))
	for i, k := range s.order {
		out[i] = s.entries[k]
	}
	return out
}

// RawItems returns the direct key/value pairs, unexpanded, in insertion
// order. "Raw" means Links are not dereferenced and interpolation
// placeholders in Strings are not expanded; use Get for that.
func (s *Struct) RawItems() []Pair {
	out := make([]Pair, len(s.order))
	for i, k := range s.order {
		out[i] = Pair{Key: k, Value: s.entries[k]}
	}
	return out
}

// Pair is an ordered key/value entry, used by FromPairs and RawItems.
type Pair struct {
	Key   string
	Value Value
}

// FromPairs builds a Struct whose direct entries are exactly pairs, in the
// given order. It exists because Go map iteration order is randomized and
// some callers (tests mirroring insertion-order-sensitive behavior, chiefly)
// need a deterministic ordered literal constructor.
func FromPairs(pairs []Pair) (*Struct, error) {
	out := NewStruct()
	for _, p := range pairs {
		if !ValidateKey(p.Key) {
			return nil, &coilerr.KeyValueError{Reason: "invalid key " + quoteForError(p.Key)}
		}
		out.setRaw(p.Key, p.Value)
	}
	return out, nil
}

// rawEntry returns the direct, unexpanded value stored under key, if any.
func (s *Struct) rawEntry(key string) (Value, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// setRaw stores v under key, detaching v first if it is a Struct currently
// owned by a different container (or by s itself under a different key).
// This is the single place ownership transfer happens.
func (s *Struct) setRaw(key string, v Value) {
	if st, ok := v.(*Struct); ok && st.container != nil {
		st.container.removeRaw(st.keyInContainer)
	}
	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = v
	if st, ok := v.(*Struct); ok {
		st.container = s
		st.keyInContainer = key
	}
}

// removeRaw deletes the direct entry under key, if present, detaching it
// if it was a Struct.
func (s *Struct) removeRaw(key string) (Value, bool) {
	v, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if st, ok := v.(*Struct); ok {
		st.container = nil
		st.keyInContainer = ""
	}
	return v, true
}

// AddExtends appends path to the pending @extends list as an old-style
// entry, resolved relative to s itself, in source order.
func (s *Struct) AddExtends(path string) {
	s.pendingExtends = append(s.pendingExtends, PendingExtends{Path: path})
}

// AddExtendsFromParent appends path to the pending @extends list as a
// new-style sugar entry, resolved relative to s's container, in source
// order.
func (s *Struct) AddExtendsFromParent(path string) {
	s.pendingExtends = append(s.pendingExtends, PendingExtends{Path: path, FromParent: true})
}

// AddDeletion appends path to the pending deletion list, in source order.
func (s *Struct) AddDeletion(path string) { s.pendingDeletions = append(s.pendingDeletions, path) }

// AddFile appends a @file directive to the pending list, in source order.
func (s *Struct) AddFile(fd FileDirective) { s.pendingFiles = append(s.pendingFiles, fd) }

// AddPackage appends a @package spec string to the pending list, in
// source order.
func (s *Struct) AddPackage(spec string) { s.pendingPackages = append(s.pendingPackages, spec) }

// PendingExtends returns the not-yet-applied @extends entries.
func (s *Struct) PendingExtends() []PendingExtends {
	return append([]PendingExtends(nil), s.pendingExtends...)
}

// PendingDeletions returns the not-yet-applied deletion target paths.
func (s *Struct) PendingDeletions() []string { return append([]string(nil), s.pendingDeletions...) }

// PendingFiles returns the not-yet-applied @file directives.
func (s *Struct) PendingFiles() []FileDirective { return append([]FileDirective(nil), s.pendingFiles...) }

// PendingPackages returns the not-yet-applied @package specs.
func (s *Struct) PendingPackages() []string { return append([]string(nil), s.pendingPackages...) }

// ClearPending drops the pending @extends, deletion, @file, and @package
// lists once the evaluator has applied them, satisfying the "no Extends
// or Deletion directives remain after evaluation" invariant.
func (s *Struct) ClearPending() {
	s.pendingExtends = nil
	s.pendingDeletions = nil
	s.pendingFiles = nil
	s.pendingPackages = nil
}

// Set stores v at path, autovivifying intermediate Structs as needed. path
// must be a plain (possibly dotted) bare key sequence rooted at s; it may
// not carry an "@root" or leading-dot prefix. An existing non-Struct value
// along an intermediate segment is a KeyValueError, as is any invalid
// segment (empty, or containing a character outside the grammar).
func (s *Struct) Set(path string, v Value) error {
	segs, err := splitSetPath(path)
	if err != nil {
		return err
	}
	cur := s
	for i, seg := range segs {
		if !validKeySegment(seg) {
			return &coilerr.KeyValueError{Path: cur.Path(), Reason: "invalid key segment " + quoteForError(seg)}
		}
		if i == len(segs)-1 {
			cur.setRaw(seg, v)
			return nil
		}
		existing, ok := cur.rawEntry(seg)
		if !ok {
			child := NewStruct()
			cur.setRaw(seg, child)
			cur = child
			continue
		}
		child, ok := existing.(*Struct)
		if !ok {
			return &coilerr.KeyValueError{Path: cur.Path(), Reason: quoteForError(seg) + " is not a struct"}
		}
		cur = child
	}
	return nil
}

func splitSetPath(path string) ([]string, error) {
	if path == "" {
		return nil, &coilerr.KeyValueError{Reason: "empty key"}
	}
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return segs, nil
}

// Delete removes the entry named by path. path may use any of the
// addressing modes Get accepts (absolute, relative, bare-lexical).
func (s *Struct) Delete(path string) error {
	parent, leaf, err := s.resolveContainerAndLeaf(path, map[string]bool{})
	if err != nil {
		return err
	}
	if _, ok := parent.removeRaw(leaf); !ok {
		return &coilerr.KeyMissingError{Path: parent.Path(), Key: leaf}
	}
	return nil
}

// Contains reports whether Get(path) would succeed.
func (s *Struct) Contains(path string) bool {
	_, err := s.Get(path)
	return err == nil
}

// Copy returns a deep, detached copy of s: child Structs and Lists get
// independent storage, Links are copied by path text (see Link's doc
// comment), and scalars are shared by value.
func (s *Struct) Copy() *Struct {
	out := NewStruct()
	for _, k := range s.order {
		out.setRaw(k, copyValue(s.entries[k]))
	}
	out.pendingExtends = append([]PendingExtends(nil), s.pendingExtends...)
	out.pendingDeletions = append([]string(nil), s.pendingDeletions...)
	out.pendingFiles = append([]FileDirective(nil), s.pendingFiles...)
	out.pendingPackages = append([]string(nil), s.pendingPackages...)
	return out
}

// Merge folds other's entries into s: where both sides hold a Struct under
// the same key, merge recurses; otherwise other's value (deep-copied)
// replaces s's.
func (s *Struct) Merge(other *Struct) {
	for _, k := range other.order {
		ov := other.entries[k]
		if osv, ok := s.rawEntry(k); ok {
			if osSt, ok2 := osv.(*Struct); ok2 {
				if ovSt, ok3 := ov.(*Struct); ok3 {
					osSt.Merge(ovSt)
					continue
				}
			}
		}
		s.setRaw(k, copyValue(ov))
	}
}

// FillFrom copies donor's entries into s wherever s does not already have
// them: where both sides hold a Struct under the same key, it recurses so
// that a partially-overridden nested struct still inherits the rest of
// the donor's keys; everywhere else, s's own value always wins and
// donor's is discarded. This is the gap-filling direction used by
// @extends and by @file/@package includes, the mirror image of Merge's
// donor-wins direction.
func (s *Struct) FillFrom(donor *Struct) {
	for _, k := range donor.order {
		dv := donor.entries[k]
		if sv, ok := s.rawEntry(k); ok {
			if sSt, ok2 := sv.(*Struct); ok2 {
				if dSt, ok3 := dv.(*Struct); ok3 {
					sSt.FillFrom(dSt)
				}
			}
			continue
		}
		s.setRaw(k, copyValue(dv))
	}
}

// Dict eagerly resolves and flattens s into a plain, container-free
// map[string]interface{}: nested Structs become nested maps, Lists become
// slices, Links are dereferenced, and interpolation placeholders in
// Strings are expanded.
func (s *Struct) Dict() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.order))
	for _, k := range s.order {
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = Unwrap(v)
	}
	return out, nil
}

// Equal reports whether s and other resolve to the same nested value,
// independent of key order.
func (s *Struct) Equal(other *Struct) bool {
	da, erra := s.Dict()
	db, errb := other.Dict()
	if erra != nil || errb != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

// EqualMap reports whether s resolves to the same nested shape as the
// plain mapping m, where dotted keys in m (e.g. "a.b.c") are expanded the
// same way Set expands them.
func (s *Struct) EqualMap(m map[string]interface{}) bool {
	other, err := FromPlain(m)
	if err != nil {
		return false
	}
	return s.Equal(other)
}

// FromPlain builds a detached Struct from a plain nested mapping, as
// produced by a generic YAML/JSON decode. Dotted keys in m are expanded
// via Set's autovivification.
func FromPlain(m map[string]interface{}) (*Struct, error) {
	out := NewStruct()
	for k, v := range m {
		val, err := valueFromPlain(v)
		if err != nil {
			return nil, err
		}
		if err := out.Set(k, val); err != nil {
			return nil, err
		}
	}
	return out, nil
}
