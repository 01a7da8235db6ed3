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

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexPunctuation(t *testing.T) {
	toks := lexAll(t, "{}[]:,~=")
	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []Kind{LBRACE, RBRACE, LBRACK, RBRACK, COLON, COMMA, TILDE, EQ, EOF}, kinds)
}

func TestLexIntAndFloat(t *testing.T) {
	toks := lexAll(t, "123 -45 +6 1.5 -2.5")
	require.Len(t, toks, 6)
	assert.Equal(t, INT, toks[0].Kind)
	assert.Equal(t, int64(123), toks[0].IntVal)
	assert.Equal(t, INT, toks[1].Kind)
	assert.Equal(t, int64(-45), toks[1].IntVal)
	assert.Equal(t, INT, toks[2].Kind)
	assert.Equal(t, int64(6), toks[2].IntVal)
	assert.Equal(t, FLOAT, toks[3].Kind)
	assert.Equal(t, 1.5, toks[3].FloatVal)
	assert.Equal(t, FLOAT, toks[4].Kind)
	assert.Equal(t, -2.5, toks[4].FloatVal)
}

func TestLexKeywords(t *testing.T) {
	toks := lexAll(t, "True False None")
	require.Len(t, toks, 4)
	assert.Equal(t, TRUE, toks[0].Kind)
	assert.Equal(t, FALSE, toks[1].Kind)
	assert.Equal(t, NONE, toks[2].Kind)
}

func TestLexBareAndDottedPaths(t *testing.T) {
	toks := lexAll(t, "foo.bar -moo @root.a ..b ...c")
	require.Len(t, toks, 6)
	assert.Equal(t, KEY, toks[0].Kind)
	assert.Equal(t, "foo.bar", toks[0].Text)
	assert.Equal(t, KEY, toks[1].Kind)
	assert.Equal(t, "-moo", toks[1].Text)
	assert.Equal(t, PATH, toks[2].Kind)
	assert.Equal(t, "@root.a", toks[2].Text)
	assert.Equal(t, PATH, toks[3].Kind)
	assert.Equal(t, "..b", toks[3].Text)
	assert.Equal(t, PATH, toks[4].Kind)
	assert.Equal(t, "...c", toks[4].Text)
}

func TestLexDirectives(t *testing.T) {
	toks := lexAll(t, "@extends @file @package @root @nosuchthing")
	require.Len(t, toks, 6)
	assert.Equal(t, AT_EXTENDS, toks[0].Kind)
	assert.Equal(t, AT_FILE, toks[1].Kind)
	assert.Equal(t, AT_PACKAGE, toks[2].Kind)
	assert.Equal(t, AT_ROOT, toks[3].Kind)
	assert.Equal(t, AT_OTHER, toks[4].Kind)
	assert.Equal(t, "@nosuchthing", toks[4].Text)
}

func TestLexStrings(t *testing.T) {
	toks := lexAll(t, `'single' "double" '''triple
line'''`)
	require.Len(t, toks, 4)
	assert.Equal(t, STRING, toks[0].Kind)
	assert.Equal(t, "single", toks[0].StrVal)
	assert.Equal(t, STRING, toks[1].Kind)
	assert.Equal(t, "double", toks[1].StrVal)
	assert.Equal(t, STRING, toks[2].Kind)
	assert.Equal(t, "triple\nline", toks[2].StrVal)
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	l := New(`"lalalal \"`)
	_, err := l.Next()
	require.Error(t, err)
}

func TestLexSkipsComments(t *testing.T) {
	toks := lexAll(t, "# a comment\nfoo: 1 # trailing\n")
	require.Len(t, toks, 4)
	assert.Equal(t, KEY, toks[0].Kind)
	assert.Equal(t, COLON, toks[1].Kind)
	assert.Equal(t, INT, toks[2].Kind)
}

func TestLexUnexpectedCharacterErrors(t *testing.T) {
	l := New("!")
	_, err := l.Next()
	require.Error(t, err)
}
