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

package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coil-config/coil/coilerr"
	"github.com/coil-config/coil/resolver"
	"github.com/coil-config/coil/tree"
)

// stubResolver serves fixed text for @file/@package directives by name, so
// these tests don't need a real filesystem. It satisfies resolver.Resolver.
type stubResolver struct {
	files    map[string]string
	packages map[string]string
}

func (r *stubResolver) ResolveFile(path string) (string, error) {
	if src, ok := r.files[path]; ok {
		return src, nil
	}
	return "", &coilerr.KeyMissingError{Key: path}
}

func (r *stubResolver) ResolvePackage(spec string) (string, error) {
	if src, ok := r.packages[spec]; ok {
		return src, nil
	}
	return "", coilerr.ErrUnsupported
}

var _ resolver.Resolver = (*stubResolver)(nil)

// fakeParser is a minimal Parser that only understands the handful of flat
// "key:value" source strings these tests feed it through @file/@package,
// avoiding a dependency on the not-yet-exercised parser package.
type fakeParser struct{}

func (fakeParser) Parse(src string) (*tree.Struct, error) {
	// src is always one of the fixed fixtures below; hand-build the
	// matching tree rather than actually parsing.
	switch src {
	case "simple-file":
		s := tree.NewStruct()
		_ = s.Set("x", tree.String("x value"))
		_ = s.Set("y.z", tree.String("z value"))
		return s, nil
	default:
		return nil, &coilerr.ParseError{Msg: "unknown fixture"}
	}
}

func newEvaluator(files map[string]string) *Evaluator {
	return New(&stubResolver{files: files}, fakeParser{})
}

// buildExtendsMergeSub constructs the tree from test_struct.py's
// PrototypeTestCase.testMergeSub by hand (base.a.b.x:1, test.a.b:{y:2,z:3},
// test extends base), since this package does not depend on the parser.
func buildExtendsMergeSub(t *testing.T) *tree.Struct {
	t.Helper()
	root := tree.NewStruct()
	require.NoError(t, root.Set("base.a.b.x", tree.Int(1)))
	require.NoError(t, root.Set("test.a.b.y", tree.Int(2)))
	require.NoError(t, root.Set("test.a.b.z", tree.Int(3)))
	testv, err := root.Get("test")
	require.NoError(t, err)
	testv.(*tree.Struct).AddExtends("..base")
	return root
}

func TestExtendsFillsNestedGaps(t *testing.T) {
	root := buildExtendsMergeSub(t)
	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("test.a.b.x")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(1), v)
	v, err = root.Get("test.a.b.y")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(2), v)
	v, err = root.Get("test.a.b.z")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(3), v)

	testv, _ := root.Get("test")
	assert.Empty(t, testv.(*tree.Struct).PendingExtends())
}

// TestExtendsForwardReference mirrors testExtendsConsistency: test extends
// a peer ("base") declared after it in source order. Source order here is
// simulated by building "test" (with a pending extends) before "base".
func TestExtendsForwardReference(t *testing.T) {
	root := tree.NewStruct()
	test := tree.NewStruct()
	test.AddExtends("..base")
	require.NoError(t, test.Set("own", tree.String("mine")))
	require.NoError(t, root.Set("test", test))

	base := tree.NewStruct()
	require.NoError(t, base.Set("shared", tree.Int(1)))
	require.NoError(t, root.Set("base", base))

	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("test.shared")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(1), v)
	v, err = root.Get("test.own")
	require.NoError(t, err)
	assert.Equal(t, tree.String("mine"), v)
}

// TestExtendsMultipleSourcesLaterWins mirrors the priority half of
// testExtendsList: "o: a, z {a:1 x:3}" where a and z share no keys in the
// fixture, so this test adds an explicit overlap to pin down priority.
func TestExtendsMultipleSourcesLaterWins(t *testing.T) {
	root := tree.NewStruct()
	require.NoError(t, root.Set("a.shared", tree.String("from-a")))
	require.NoError(t, root.Set("a.onlyA", tree.Int(1)))
	require.NoError(t, root.Set("z.shared", tree.String("from-z")))
	require.NoError(t, root.Set("z.onlyZ", tree.Int(2)))

	m := tree.NewStruct()
	m.AddExtends("..a")
	m.AddExtends("..z")
	require.NoError(t, root.Set("m", m))

	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("m.shared")
	require.NoError(t, err)
	assert.Equal(t, tree.String("from-z"), v, "later-listed source wins on conflict")

	v, err = root.Get("m.onlyA")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(1), v)
	v, err = root.Get("m.onlyZ")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(2), v)
}

// TestLocalBindingWinsOverExtends pins "local bindings always win over
// inherited bindings" (spec line 165).
func TestLocalBindingWinsOverExtends(t *testing.T) {
	root := tree.NewStruct()
	require.NoError(t, root.Set("a.x", tree.Int(1)))

	b := tree.NewStruct()
	b.AddExtends("..a")
	require.NoError(t, b.Set("x", tree.Int(99)))
	require.NoError(t, root.Set("b", b))

	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("b.x")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(99), v)
}

// TestExtendsThroughLink mirrors testExtendsLink: "b: a" binds b as a link
// to a, and "c: b {y:2}" extends through that link.
func TestExtendsThroughLink(t *testing.T) {
	root := tree.NewStruct()
	require.NoError(t, root.Set("a.x", tree.Int(1)))
	require.NoError(t, root.Set("b", tree.NewLink("a")))

	c := tree.NewStruct()
	c.AddExtends("..b")
	require.NoError(t, c.Set("y", tree.Int(2)))
	require.NoError(t, root.Set("c", c))

	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("c.x")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(1), v)
	v, err = root.Get("c.y")
	require.NoError(t, err)
	assert.Equal(t, tree.Int(2), v)
}

// TestDeletionAfterExtends mirrors testDelete/testDeleteSub: a deletion
// naming a key that exists only after extends fills it in.
func TestDeletionAfterExtends(t *testing.T) {
	root := tree.NewStruct()
	require.NoError(t, root.Set("a.x", tree.String("x")))
	require.NoError(t, root.Set("a.y", tree.String("y")))

	b := tree.NewStruct()
	b.AddExtends("..a")
	b.AddDeletion("y")
	require.NoError(t, root.Set("b", b))

	require.NoError(t, newEvaluator(nil).Evaluate(root))

	v, err := root.Get("b.x")
	require.NoError(t, err)
	assert.Equal(t, tree.String("x"), v)

	_, err = root.Get("b.y")
	var kme *coilerr.KeyMissingError
	assert.ErrorAs(t, err, &kme)
}

func TestCircularExtendsDetected(t *testing.T) {
	root := tree.NewStruct()
	a := tree.NewStruct()
	a.AddExtends("..b")
	require.NoError(t, root.Set("a", a))
	b := tree.NewStruct()
	b.AddExtends("..a")
	require.NoError(t, root.Set("b", b))

	err := newEvaluator(nil).Evaluate(root)
	var se *coilerr.StructError
	assert.ErrorAs(t, err, &se)
}

func TestSelfExtendsDetected(t *testing.T) {
	root := tree.NewStruct()
	a := tree.NewStruct()
	a.AddExtends("..a")
	require.NoError(t, root.Set("a", a))

	err := newEvaluator(nil).Evaluate(root)
	var se *coilerr.StructError
	assert.ErrorAs(t, err, &se)
}

// TestFileWholeInclude mirrors testFile.
func TestFileWholeInclude(t *testing.T) {
	root := tree.NewStruct()
	root.AddFile(tree.FileDirective{Path: "simple.coil"})

	e := newEvaluator(map[string]string{"simple.coil": "simple-file"})
	require.NoError(t, e.Evaluate(root))

	v, err := root.Get("x")
	require.NoError(t, err)
	assert.Equal(t, tree.String("x value"), v)
	v, err = root.Get("y.z")
	require.NoError(t, err)
	assert.Equal(t, tree.String("z value"), v)
}

// TestFileSubKeyInclude mirrors testFileSub.
func TestFileSubKeyInclude(t *testing.T) {
	root := tree.NewStruct()
	sub := tree.NewStruct()
	sub.AddFile(tree.FileDirective{Path: "simple.coil", SubKey: "y"})
	require.NoError(t, root.Set("sub", sub))

	e := newEvaluator(map[string]string{"simple.coil": "simple-file"})
	require.NoError(t, e.Evaluate(root))

	v, err := root.Get("sub.z")
	require.NoError(t, err)
	assert.Equal(t, tree.String("z value"), v)
}

// TestFileDeleteAfterInclude mirrors testFileDelete.
func TestFileDeleteAfterInclude(t *testing.T) {
	root := tree.NewStruct()
	sub := tree.NewStruct()
	sub.AddFile(tree.FileDirective{Path: "simple.coil"})
	sub.AddDeletion("y.z")
	require.NoError(t, root.Set("sub", sub))

	e := newEvaluator(map[string]string{"simple.coil": "simple-file"})
	require.NoError(t, e.Evaluate(root))

	v, err := root.Get("sub.x")
	require.NoError(t, err)
	assert.Equal(t, tree.String("x value"), v)

	_, err = root.Get("sub.y.z")
	var kme *coilerr.KeyMissingError
	assert.ErrorAs(t, err, &kme)
}

// TestPackageUnsupportedResolver mirrors Open Question 3: a resolver that
// refuses @package turns into a StructError, not a panic.
func TestPackageUnsupportedResolver(t *testing.T) {
	root := tree.NewStruct()
	root.AddPackage("coil.test:simple.coil")

	err := newEvaluator(nil).Evaluate(root)
	var se *coilerr.StructError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, coilerr.ErrUnsupported)
}
