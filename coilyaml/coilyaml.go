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

// Package coilyaml bridges a fully evaluated tree.Struct to and from YAML,
// the way a Coil config is handed off to or seeded from the rest of a Go
// service's configuration stack once it has been resolved.
package coilyaml

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/coil-config/coil/tree"
)

// Marshal resolves s (Links dereferenced, string interpolation expanded,
// via Struct.Dict) and encodes the result as YAML.
func Marshal(s *tree.Struct) ([]byte, error) {
	m, err := s.Dict()
	if err != nil {
		return nil, fmt.Errorf("coilyaml: resolving struct: %w", err)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("coilyaml: marshaling yaml: %w", err)
	}
	return out, nil
}

// Unmarshal decodes YAML data into a detached, unevaluated tree.Struct via
// tree.FromPlain: a mapping key becomes a Struct entry the same way Set
// would build one from a dotted path, since Coil's own key grammar has no
// way to represent a literal "." inside one key — a YAML key "a.b" and a
// YAML mapping "a: {b: ...}" land on the same nested Struct shape. A
// sequence becomes a List, and scalars map onto the matching Value kind.
func Unmarshal(data []byte) (*tree.Struct, error) {
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("coilyaml: parsing yaml: %w", err)
	}
	s, err := tree.FromPlain(m)
	if err != nil {
		return nil, fmt.Errorf("coilyaml: building struct: %w", err)
	}
	return s, nil
}
