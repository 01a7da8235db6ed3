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

// Package tree implements the Coil data model: an ordered Struct→Value tree
// with prototype-style back-references, deferred Link values, and the
// mutation/navigation primitives (get, set, delete, copy, merge, dict,
// equality) specified for the tree model component of the Coil core.
//
// Extends and Deletion directives are not modeled as Value variants keyed
// under a name the way the other eight are (the grammar never gives them a
// key of their own — a deletion entry is "~path", not "key: ~path"), so
// they live as ordered, struct-level pending lists instead; see
// Struct.AddExtends/AddDeletion. This is an equivalent representation of
// the taxonomy in the core specification's data model section: once
// evaluation clears those lists, "no Extends or Deletion values remain
// anywhere in the tree" holds exactly as stated there.
package tree

import (
	"github.com/coil-config/coil/coilerr"
)

// Kind tags the dynamic type of a Value, the way analyzer/core/mast tags
// its Node variants via an unexported marker method.
type Kind uint8

// The eight Value kinds named in the core data model.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindStruct
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindStruct:
		return "Struct"
	case KindLink:
		return "Link"
	default:
		return "<invalid>"
	}
}

// Value is implemented by every Coil value variant. The unexported marker
// method keeps the set of implementations closed to this package, the same
// discipline analyzer/core/mast.Node uses for MAST nodes.
type Value interface {
	Kind() Kind
	coilValue()
}

// Null is the Value produced by the token None.
type Null struct{}

// Kind implements Value.
func (Null) Kind() Kind { return KindNull }
func (Null) coilValue() {}

// Bool is a boolean scalar.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }
func (Bool) coilValue() {}

// Int is a signed 64-bit integer scalar.
type Int int64

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }
func (Int) coilValue() {}

// Float is an IEEE-754 double scalar.
type Float float64

// Kind implements Value.
func (Float) Kind() Kind { return KindFloat }
func (Float) coilValue() {}

// String is a UTF-8 string scalar. It may carry unexpanded "${path}"
// interpolation placeholders; Struct.Get resolves them eagerly on read.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }
func (String) coilValue() {}

// List is an ordered, heterogeneous, possibly-nested sequence of Values. It
// may not directly contain a *Struct; the parser rejects that syntactically
// per the core specification ("list literal containing a struct").
type List struct {
	Elems []Value
}

// NewList builds a List from the given elements.
func NewList(elems ...Value) *List { return &List{Elems: elems} }

// Kind implements Value.
func (*List) Kind() Kind { return KindList }
func (*List) coilValue() {}

func (l *List) deepCopy() *List {
	out := make([]Value, len(l.Elems))
	for i, e := range l.Elems {
		out[i] = copyValue(e)
	}
	return &List{Elems: out}
}

// Link is a path reference that transparently dereferences on read. It
// stores only the path text: its lexical scope is always "whichever Struct
// currently holds this Link value", determined live at resolution time, so
// that a copied Link "continues to resolve via the receiver's root" (per
// the core specification's Copy semantics) without any path rewriting.
type Link struct {
	Path string
}

// NewLink builds a Link to the given path.
func NewLink(path string) *Link { return &Link{Path: path} }

// Kind implements Value.
func (*Link) Kind() Kind { return KindLink }
func (*Link) coilValue() {}

// copyValue deep-copies a Value for Struct.Copy/Merge: Structs and Lists
// get independent storage, Links are copied by path text only (see Link's
// doc comment), and the remaining scalar kinds are immutable Go values
// that are safe to share.
func copyValue(v Value) Value {
	switch vv := v.(type) {
	case *Struct:
		return vv.Copy()
	case *List:
		return vv.deepCopy()
	case *Link:
		return &Link{Path: vv.Path}
	default:
		return v
	}
}

// Unwrap converts a Value into a plain Go value (nil, bool, int64, float64,
// string, []interface{}, map[string]interface{}) suitable for comparison
// against host-language data or for handing to an unrelated serializer
// (e.g. coilyaml). Links are not dereferenced by Unwrap itself; callers
// normally get a Value that has already passed through Struct.Get, which
// dereferences and expands eagerly.
func Unwrap(v Value) interface{} {
	switch vv := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(vv)
	case Int:
		return int64(vv)
	case Float:
		return float64(vv)
	case String:
		return string(vv)
	case *List:
		out := make([]interface{}, len(vv.Elems))
		for i, e := range vv.Elems {
			out[i] = Unwrap(e)
		}
		return out
	case *Struct:
		d, _ := vv.Dict()
		return d
	case *Link:
		return vv.Path
	default:
		return nil
	}
}

// valueFromPlain is the inverse of Unwrap, used by FromPlain to build a
// Struct out of nested Go maps/slices/scalars (as produced by, e.g.,
// yaml.v3's generic Unmarshal target).
func valueFromPlain(v interface{}) (Value, error) {
	switch vv := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(vv), nil
	case int:
		return Int(int64(vv)), nil
	case int64:
		return Int(vv), nil
	case float64:
		return Float(vv), nil
	case string:
		return String(vv), nil
	case []interface{}:
		elems := make([]Value, len(vv))
		for i, e := range vv {
			ev, err := valueFromPlain(e)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return &List{Elems: elems}, nil
	case map[string]interface{}:
		return FromPlain(vv)
	default:
		return nil, &coilerr.KeyTypeError{}
	}
}
