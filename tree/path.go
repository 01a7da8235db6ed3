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
	"strings"

	"github.com/coil-config/coil/coilerr"
)

// ValidateKey reports whether s is a single valid struct key: an optional
// leading '-', then an identifier-start character, then any run of
// identifier, digit, or '-' characters. "@root" is reserved and never a
// valid key even though it otherwise matches the shape.
func ValidateKey(s string) bool {
	return s != "@root" && validKeySegment(s)
}

// ValidatePath reports whether s is a syntactically valid path: "@root",
// an "@root."-prefixed absolute path, a relative path of one or more
// leading dots optionally followed by a dotted segment sequence, or a bare
// dotted segment sequence.
func ValidatePath(s string) bool {
	_, err := parsePathStr(s)
	return err == nil
}

func validKeySegment(seg string) bool {
	if seg == "" {
		return false
	}
	i := 0
	if seg[0] == '-' {
		i = 1
	}
	if i >= len(seg) {
		return false
	}
	if !isIdentStartByte(seg[i]) {
		return false
	}
	for j := i + 1; j < len(seg); j++ {
		if !isIdentContByte(seg[j]) {
			return false
		}
	}
	return true
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9') || b == '-'
}

func validDottedSegments(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !validKeySegment(seg) {
			return false
		}
	}
	return true
}

// parsedPath is a path string broken into its addressing mode and segment
// list. It deliberately does not carry the "@root" literal or leading dots
// as segments; those are captured by Absolute/UpLevels instead.
type parsedPath struct {
	// Absolute marks an "@root"-rooted path.
	Absolute bool
	// UpLevels is the number of containers to ascend for a relative path
	// ("." is 0, ".." is 1, "..." is 2, ...), or -1 for a bare path, whose
	// first segment is found by lexical ascent rather than a fixed count.
	UpLevels int
	Segments []string
}

func (pp parsedPath) bare() bool { return !pp.Absolute && pp.UpLevels < 0 }

func parsePathStr(s string) (parsedPath, error) {
	invalid := func() (parsedPath, error) {
		return parsedPath{}, &coilerr.KeyValueError{Reason: "malformed path " + quoteForError(s)}
	}

	if s == "" {
		return invalid()
	}
	if s == "@root" {
		return parsedPath{Absolute: true}, nil
	}
	if strings.HasPrefix(s, "@root.") {
		rest := s[len("@root."):]
		if !validDottedSegments(rest) {
			return invalid()
		}
		return parsedPath{Absolute: true, Segments: strings.Split(rest, ".")}, nil
	}
	if strings.HasPrefix(s, "@") {
		return invalid()
	}

	if s[0] == '.' {
		i := 0
		for i < len(s) && s[i] == '.' {
			i++
		}
		rest := s[i:]
		if rest == "" {
			return parsedPath{UpLevels: i - 1}, nil
		}
		if !validDottedSegments(rest) {
			return invalid()
		}
		return parsedPath{UpLevels: i - 1, Segments: strings.Split(rest, ".")}, nil
	}

	if !validDottedSegments(s) {
		return invalid()
	}
	return parsedPath{UpLevels: -1, Segments: strings.Split(s, ".")}, nil
}

func quoteForError(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(s)
	b.WriteByte('"')
	return b.String()
}
