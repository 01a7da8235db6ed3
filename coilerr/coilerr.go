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

// Package coilerr defines the error taxonomy shared by every layer of the
// Coil core: the lexer, the parser, the tree model, and the evaluator. Every
// concrete type carries the structural path at which the failure occurred,
// when one is meaningful, and satisfies CoilError so callers can write a
// single catch-all branch when they don't care which kind of failure they
// got.
package coilerr

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by a Resolver that does not implement file or
// package resolution. The evaluator turns it into a StructError rather than
// propagating it directly, per the core's "resolver may refuse" contract.
var ErrUnsupported = errors.New("coil: operation not supported by this resolver")

// CoilError is the abstract supertype every concrete error below satisfies.
// It exists for catch-all handling; callers that care about the exact kind
// should still use errors.As against the concrete type.
type CoilError interface {
	error
	// Kind names the concrete error type, e.g. "ParseError".
	Kind() string
}

// ParseError reports a syntactic failure: unterminated strings, bad number
// literals, unmatched braces, directive misuse, or a stray token.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("parse error: %s", e.Msg)
	}
	return fmt.Sprintf("parse error at line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// Kind implements CoilError.
func (e *ParseError) Kind() string { return "ParseError" }

// KeyMissingError reports that path resolution found no such key.
type KeyMissingError struct {
	Path string // path at which resolution was attempted
	Key  string // the specific segment/path that could not be found
}

func (e *KeyMissingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("key missing: %q", e.Key)
	}
	return fmt.Sprintf("at %s: key missing: %q", e.Path, e.Key)
}

// Kind implements CoilError.
func (e *KeyMissingError) Kind() string { return "KeyMissingError" }

// KeyTypeError reports that a non-string key was used in a lookup or
// assignment.
type KeyTypeError struct {
	Path string
}

func (e *KeyTypeError) Error() string {
	if e.Path == "" {
		return "key must be a string"
	}
	return fmt.Sprintf("at %s: key must be a string", e.Path)
}

// Kind implements CoilError.
func (e *KeyTypeError) Kind() string { return "KeyTypeError" }

// KeyValueError reports a malformed key or path: an empty segment, an
// invalid character, or similar.
type KeyValueError struct {
	Path   string
	Reason string
}

func (e *KeyValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid key or path: %s", e.Reason)
	}
	return fmt.Sprintf("at %s: invalid key or path: %s", e.Path, e.Reason)
}

// Kind implements CoilError.
func (e *KeyValueError) Kind() string { return "KeyValueError" }

// StructError reports an evaluation failure: circular extends, circular
// expansion, an include resolver failure, or an invalid @extends target.
type StructError struct {
	Path string
	Msg  string
	Err  error // underlying cause, if any (resolver failures etc.)
}

func (e *StructError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Path == "" {
		return msg
	}
	return fmt.Sprintf("at %s: %s", e.Path, msg)
}

// Kind implements CoilError.
func (e *StructError) Kind() string { return "StructError" }

// Unwrap allows errors.Is/errors.As to see through to the resolver failure
// that caused this StructError, if any.
func (e *StructError) Unwrap() error { return e.Err }
