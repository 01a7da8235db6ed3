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

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coil-config/coil/coilerr"
	"github.com/coil-config/coil/tree"
)

func mustParse(t *testing.T, src string) *tree.Struct {
	t.Helper()
	s, err := Parse(src)
	require.NoError(t, err, "source: %s", src)
	return s
}

func rawGet(t *testing.T, s *tree.Struct, path string) tree.Value {
	t.Helper()
	v, err := s.Get(path)
	require.NoError(t, err, "path: %s", path)
	return v
}

func TestParseScalars(t *testing.T) {
	root := mustParse(t, `i: 1 f: 2.5 s: "hello" t: True fa: False n: None neg: -3 posf: +4.0`)
	assert.Equal(t, tree.Int(1), rawGet(t, root, "i"))
	assert.Equal(t, tree.Float(2.5), rawGet(t, root, "f"))
	assert.Equal(t, tree.String("hello"), rawGet(t, root, "s"))
	assert.Equal(t, tree.Bool(true), rawGet(t, root, "t"))
	assert.Equal(t, tree.Bool(false), rawGet(t, root, "fa"))
	assert.Equal(t, tree.Null{}, rawGet(t, root, "n"))
	assert.Equal(t, tree.Int(-3), rawGet(t, root, "neg"))
	assert.Equal(t, tree.Float(4.0), rawGet(t, root, "posf"))
}

// TestList mirrors test_parser.py's testList.
func TestList(t *testing.T) {
	root := mustParse(t, `x: ["a" 1 2.0 True False None]`)
	lst, ok := root.RawItems()[0].Value.(*tree.List)
	require.True(t, ok)
	require.Equal(t, 6, len(lst.Elems))
	assert.Equal(t, tree.String("a"), lst.Elems[0])
	assert.Equal(t, tree.Int(1), lst.Elems[1])
	assert.Equal(t, tree.Float(2.0), lst.Elems[2])
	assert.Equal(t, tree.Bool(true), lst.Elems[3])
	assert.Equal(t, tree.Bool(false), lst.Elems[4])
	assert.Equal(t, tree.Null{}, lst.Elems[5])
}

// TestNestedList mirrors test_parser.py's testNestedList.
func TestNestedList(t *testing.T) {
	root := mustParse(t, `x: ["a" ["b" "c"]]`)
	outer := root.RawItems()[0].Value.(*tree.List)
	require.Equal(t, 2, len(outer.Elems))
	inner, ok := outer.Elems[1].(*tree.List)
	require.True(t, ok)
	assert.Equal(t, []tree.Value{tree.String("b"), tree.String("c")}, inner.Elems)
}

func TestStructLiteral(t *testing.T) {
	root := mustParse(t, `a: { x: "x" y: { z: 1 } }`)
	assert.Equal(t, tree.String("x"), rawGet(t, root, "a.x"))
	assert.Equal(t, tree.Int(1), rawGet(t, root, "a.y.z"))
}

func TestBareLinkValue(t *testing.T) {
	root := mustParse(t, `x: =y y: "foo"`)
	lnk, ok := root.RawItems()[0].Value.(*tree.Link)
	require.True(t, ok)
	assert.Equal(t, "y", lnk.Path)

	root2 := mustParse(t, `y: "foo" x: y`)
	lnk2, ok := root2.RawItems()[1].Value.(*tree.Link)
	require.True(t, ok)
	assert.Equal(t, "y", lnk2.Path)
}

func TestRelativeLinkValue(t *testing.T) {
	root := mustParse(t, `a: { x: 1 } b: { y: ..a.x }`)
	lnk, ok := root.RawItems()[1].Value.(*tree.Struct).RawItems()[0].Value.(*tree.Link)
	require.True(t, ok)
	assert.Equal(t, "..a.x", lnk.Path)
}

// TestOldExtends mirrors test_parser.py's testOldExtends.
func TestOldExtends(t *testing.T) {
	root := mustParse(t, `a: { x: "x" } b: { @extends: ..a }`)
	b := root.RawItems()[1].Value.(*tree.Struct)
	assert.Equal(t, []tree.PendingExtends{{Path: "..a"}}, b.PendingExtends())
}

// TestNewExtends mirrors test_parser.py's testNewExtends: the sugar form
// "b: a{}" is equivalent to "b: { @extends: a }".
func TestNewExtends(t *testing.T) {
	root := mustParse(t, `a: { x: "x" } b: a{}`)
	b := root.RawItems()[1].Value.(*tree.Struct)
	assert.Equal(t, []tree.PendingExtends{{Path: "a", FromParent: true}}, b.PendingExtends())
	assert.Equal(t, 0, b.Len())
}

// TestExtendsList mirrors test_parser.py's testExtendsList, checking all
// three spellings of a multi-source @extends collect the same paths.
func TestExtendsList(t *testing.T) {
	root := mustParse(t, `
	a: { x:1 y:2 z: 3}
	z: { a:3 b:2 c: 1}

	m: { @extends: [..a ..z] a:1 x:3 }
	n: { @extends: ..a, ..z a:1 x:3 }
	o: a, z { a:1 x:3 }
	`)
	m := root.RawItems()[2].Value.(*tree.Struct)
	n := root.RawItems()[3].Value.(*tree.Struct)
	o := root.RawItems()[4].Value.(*tree.Struct)
	assert.Equal(t, []tree.PendingExtends{{Path: "..a"}, {Path: "..z"}}, m.PendingExtends())
	assert.Equal(t, []tree.PendingExtends{{Path: "..a"}, {Path: "..z"}}, n.PendingExtends())
	assert.Equal(t, []tree.PendingExtends{{Path: "a", FromParent: true}, {Path: "z", FromParent: true}}, o.PendingExtends())
	for _, s := range []*tree.Struct{m, n, o} {
		assert.Equal(t, tree.Int(1), s.RawItems()[0].Value)
		assert.Equal(t, tree.Int(3), s.RawItems()[1].Value)
	}
}

func TestDeletionEntry(t *testing.T) {
	root := mustParse(t, `a: { x: 1 y: 2 } b: { @extends: ..a ~y }`)
	b := root.RawItems()[1].Value.(*tree.Struct)
	assert.Equal(t, []string{"y"}, b.PendingDeletions())
}

func TestFileDirectiveWholeAndSubKey(t *testing.T) {
	root := mustParse(t, `a: { @file: "x.coil" } b: { @file: ["x.coil" "sub"] }`)
	a := root.RawItems()[0].Value.(*tree.Struct)
	b := root.RawItems()[1].Value.(*tree.Struct)
	assert.Equal(t, []tree.FileDirective{{Path: "x.coil"}}, a.PendingFiles())
	assert.Equal(t, []tree.FileDirective{{Path: "x.coil", SubKey: "sub"}}, b.PendingFiles())
}

func TestPackageDirective(t *testing.T) {
	root := mustParse(t, `a: { @package: "coil.test:simple.coil" }`)
	a := root.RawItems()[0].Value.(*tree.Struct)
	assert.Equal(t, []string{"coil.test:simple.coil"}, a.PendingPackages())
}

func TestStringWhitespaceRoundTripsThroughValue(t *testing.T) {
	root := mustParse(t, "a: '''this\nis\r\na\tstring\n\r\n\t'''")
	assert.Equal(t, tree.String("this\nis\r\na\tstring\n\r\n\t"), rawGet(t, root, "a"))
}

func TestTripleQuotedString(t *testing.T) {
	root := mustParse(t, `a: """line one
line two"""`)
	assert.Equal(t, tree.String("line one\nline two"), rawGet(t, root, "a"))
}

func TestComment(t *testing.T) {
	root := mustParse(t, "# a leading comment\na: 1 # trailing\nb: 2")
	assert.Equal(t, tree.Int(1), rawGet(t, root, "a"))
	assert.Equal(t, tree.Int(2), rawGet(t, root, "b"))
}

// TestParseErrors mirrors test_parser.py's testParseError table: every one
// of these must fail to parse (or, for ones that only fail during
// evaluation, is covered in the eval package's own tests instead).
func TestParseErrors(t *testing.T) {
	cases := []string{
		"struct: {",
		"struct: }",
		"a: b:",
		":",
		"[]",
		"a: ~b",
		"@x: 2",
		"x: 12c",
		"x: 12.c3",
		"x: @root",
		"z: [{x: 2}]",
		"a: [1 2 3]]",
	}
	for _, src := range cases {
		_, err := Parse(src)
		assert.Error(t, err, "source: %q", src)
		var ce coilerr.CoilError
		assert.ErrorAs(t, err, &ce, "source: %q", src)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, err := Parse(`z: "lalalal \"`)
	assert.Error(t, err)
}

func TestUnterminatedList(t *testing.T) {
	_, err := Parse(`a: [1 2 3`)
	assert.Error(t, err)
}

func TestUnterminatedExtendsList(t *testing.T) {
	_, err := Parse(`a: { @extends: [..a ..b`)
	assert.Error(t, err)
}

func TestEmptyExtendsListRejected(t *testing.T) {
	_, err := Parse(`a: { @extends: [] }`)
	assert.Error(t, err)
}

func TestMultipleInheritPathsWithoutBraceRejected(t *testing.T) {
	_, err := Parse(`a: { x: 1 } z: { y: 1 } o: a, z`)
	assert.Error(t, err)
}

func TestBadFileDirectiveShape(t *testing.T) {
	_, err := Parse(`a: { @file: 5 }`)
	assert.Error(t, err)
}
