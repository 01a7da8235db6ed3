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

// Package parser implements the Coil grammar as a recursive-descent parser
// that writes directly into a tree.Struct: there is no separate AST layer,
// since every production in the grammar already corresponds to one of
// Struct's own mutation primitives (Set, AddExtends, AddDeletion, AddFile,
// AddPackage). The parser is simply the first writer of a tree.Struct; the
// evaluator is the second.
package parser

import (
	"fmt"

	"github.com/coil-config/coil/coilerr"
	"github.com/coil-config/coil/internal/token"
	"github.com/coil-config/coil/tree"
)

// Parser turns Coil source text into a tree.Struct, one call to Parse at a
// time. It is not safe for concurrent use, but a single Parser value may be
// reused across calls to Parse.
type Parser struct {
	lex *token.Lexer
	cur token.Token
}

// New returns a Parser that is not yet positioned over any source; call
// Parse to scan src into a root Struct.
func New() *Parser {
	return &Parser{}
}

// Parse scans src in full and returns the resulting root Struct, which
// still carries whatever pending @extends/@file/@package/deletion
// directives its body and nested struct literals declared; use the eval
// package to resolve those.
func Parse(src string) (*tree.Struct, error) {
	return New().Parse(src)
}

// Parse scans src and returns the resulting root Struct.
func (p *Parser) Parse(src string) (*tree.Struct, error) {
	p.lex = token.New(src)
	if err := p.advance(); err != nil {
		return nil, err
	}
	root := tree.NewStruct()
	if err := p.parseStructBody(root); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.errorf("unexpected trailing token %s", p.cur.Kind)
	}
	return root, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) *coilerr.ParseError {
	return &coilerr.ParseError{Line: p.cur.Pos.Line, Col: p.cur.Pos.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k token.Kind) error {
	if p.cur.Kind != k {
		return p.errorf("expected %s, got %s", k, p.cur.Kind)
	}
	return p.advance()
}

// isPathLike reports whether tok can stand in for the grammar's PATH
// nonterminal: either a bare dotted KEY ("a.b") or a prefixed relative/
// absolute PATH ("..a", "@root.a").
func isPathLike(tok token.Token) bool {
	return tok.Kind == token.KEY || tok.Kind == token.PATH
}

// parseStructBody consumes entries (deletions, directives, key/value pairs)
// into s until it sees '}' or EOF, the two valid terminators: '}' for a
// nested struct literal, EOF for the file root.
func (p *Parser) parseStructBody(s *tree.Struct) error {
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		if err := p.parseEntry(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseEntry(s *tree.Struct) error {
	switch p.cur.Kind {
	case token.TILDE:
		return p.parseDeletion(s)
	case token.AT_EXTENDS:
		return p.parseAtExtends(s)
	case token.AT_FILE:
		return p.parseAtFile(s)
	case token.AT_PACKAGE:
		return p.parseAtPackage(s)
	case token.KEY:
		key := p.cur.Text
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expect(token.COLON); err != nil {
			return err
		}
		return p.parseKeyValue(s, key)
	case token.AT_OTHER:
		return p.errorf("unknown directive %q", p.cur.Text)
	default:
		return p.errorf("unexpected token %s in struct body", p.cur.Kind)
	}
}

func (p *Parser) parseDeletion(s *tree.Struct) error {
	if err := p.advance(); err != nil { // consume '~'
		return err
	}
	if !isPathLike(p.cur) {
		return p.errorf("expected a path after '~', got %s", p.cur.Kind)
	}
	path := p.cur.Text
	if err := p.advance(); err != nil {
		return err
	}
	s.AddDeletion(path)
	return nil
}

// parsePathList consumes one PATH, then any further ", PATH" continuations,
// used by both the "@extends: a, b" directive form and the "key: a, b {"
// inherit sugar.
func (p *Parser) parsePathList() ([]string, error) {
	if !isPathLike(p.cur) {
		return nil, p.errorf("expected a path, got %s", p.cur.Kind)
	}
	paths := []string{p.cur.Text}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.cur.Kind == token.COMMA {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !isPathLike(p.cur) {
			return nil, p.errorf("expected a path after ',', got %s", p.cur.Kind)
		}
		paths = append(paths, p.cur.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (p *Parser) parseAtExtends(s *tree.Struct) error {
	if err := p.advance(); err != nil { // consume '@extends'
		return err
	}
	if err := p.expect(token.COLON); err != nil {
		return err
	}

	var paths []string
	if p.cur.Kind == token.LBRACK {
		if err := p.advance(); err != nil {
			return err
		}
		for p.cur.Kind != token.RBRACK {
			if p.cur.Kind == token.EOF {
				return p.errorf("unterminated @extends list")
			}
			if !isPathLike(p.cur) {
				return p.errorf("expected a path in @extends list, got %s", p.cur.Kind)
			}
			paths = append(paths, p.cur.Text)
			if err := p.advance(); err != nil {
				return err
			}
		}
		if len(paths) == 0 {
			return p.errorf("@extends list must name at least one path")
		}
		if err := p.advance(); err != nil { // consume ']'
			return err
		}
	} else {
		list, err := p.parsePathList()
		if err != nil {
			return err
		}
		paths = list
	}

	for _, path := range paths {
		s.AddExtends(path)
	}
	return nil
}

func (p *Parser) parseAtFile(s *tree.Struct) error {
	if err := p.advance(); err != nil { // consume '@file'
		return err
	}
	if err := p.expect(token.COLON); err != nil {
		return err
	}

	if p.cur.Kind == token.STRING {
		path := p.cur.StrVal
		if err := p.advance(); err != nil {
			return err
		}
		s.AddFile(tree.FileDirective{Path: path})
		return nil
	}
	if p.cur.Kind == token.LBRACK {
		if err := p.advance(); err != nil {
			return err
		}
		if p.cur.Kind != token.STRING {
			return p.errorf("expected a file path string, got %s", p.cur.Kind)
		}
		path := p.cur.StrVal
		if err := p.advance(); err != nil {
			return err
		}
		if p.cur.Kind != token.STRING {
			return p.errorf("expected a sub-key string, got %s", p.cur.Kind)
		}
		subKey := p.cur.StrVal
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expect(token.RBRACK); err != nil {
			return err
		}
		s.AddFile(tree.FileDirective{Path: path, SubKey: subKey})
		return nil
	}
	return p.errorf("expected a string or [string string] after @file, got %s", p.cur.Kind)
}

func (p *Parser) parseAtPackage(s *tree.Struct) error {
	if err := p.advance(); err != nil { // consume '@package'
		return err
	}
	if err := p.expect(token.COLON); err != nil {
		return err
	}
	if p.cur.Kind != token.STRING {
		return p.errorf("expected a string after @package, got %s", p.cur.Kind)
	}
	spec := p.cur.StrVal
	if err := p.advance(); err != nil {
		return err
	}
	s.AddPackage(spec)
	return nil
}

// parseKeyValue parses the value grammar following "key :" and stores the
// result under key in s. A bare path value is ambiguous with the inherit
// sugar ("key: proto { ... }") until either a '{' or the absence of one is
// seen, so both are handled in the same branch.
func (p *Parser) parseKeyValue(s *tree.Struct, key string) error {
	switch p.cur.Kind {
	case token.LBRACE:
		child := tree.NewStruct()
		if err := p.parseStructLiteralInto(child); err != nil {
			return err
		}
		return s.Set(key, child)

	case token.LBRACK:
		list, err := p.parseList()
		if err != nil {
			return err
		}
		return s.Set(key, list)

	case token.INT:
		v := tree.Int(p.cur.IntVal)
		return p.finishScalar(s, key, v)
	case token.FLOAT:
		v := tree.Float(p.cur.FloatVal)
		return p.finishScalar(s, key, v)
	case token.STRING:
		v := tree.String(p.cur.StrVal)
		return p.finishScalar(s, key, v)
	case token.TRUE:
		return p.finishScalar(s, key, tree.Bool(true))
	case token.FALSE:
		return p.finishScalar(s, key, tree.Bool(false))
	case token.NONE:
		return p.finishScalar(s, key, tree.Null{})

	case token.EQ:
		if err := p.advance(); err != nil {
			return err
		}
		if !isPathLike(p.cur) {
			return p.errorf("expected a path after '=', got %s", p.cur.Kind)
		}
		path := p.cur.Text
		if err := p.advance(); err != nil {
			return err
		}
		return s.Set(key, tree.NewLink(path))

	case token.KEY, token.PATH:
		sources, err := p.parsePathList()
		if err != nil {
			return err
		}
		if p.cur.Kind == token.LBRACE {
			child := tree.NewStruct()
			for _, src := range sources {
				child.AddExtendsFromParent(src)
			}
			if err := p.parseStructLiteralInto(child); err != nil {
				return err
			}
			return s.Set(key, child)
		}
		if len(sources) > 1 {
			return p.errorf("expected '{' after multiple inherit paths")
		}
		return s.Set(key, tree.NewLink(sources[0]))

	case token.TILDE:
		return p.errorf("'~' is not a valid value; deletions are entries of their own, not values")

	case token.AT_ROOT:
		return p.errorf("bare @root is not a valid value")
	case token.AT_EXTENDS, token.AT_FILE, token.AT_PACKAGE, token.AT_OTHER:
		return p.errorf("%s is a directive, not a valid value", p.cur.Kind)

	default:
		return p.errorf("expected a value, got %s", p.cur.Kind)
	}
}

func (p *Parser) finishScalar(s *tree.Struct, key string, v tree.Value) error {
	if err := p.advance(); err != nil {
		return err
	}
	return s.Set(key, v)
}

// parseStructLiteralInto consumes '{' struct_body '}' into child, leaving
// p.cur positioned just past the closing '}'.
func (p *Parser) parseStructLiteralInto(child *tree.Struct) error {
	if err := p.advance(); err != nil { // consume '{'
		return err
	}
	if err := p.parseStructBody(child); err != nil {
		return err
	}
	return p.expect(token.RBRACE)
}

// parseList consumes '[' ( scalar | list )* ']'. A struct literal or link
// inside a list is a syntax error: the grammar's list production only
// admits scalars and nested lists.
func (p *Parser) parseList() (*tree.List, error) {
	if err := p.advance(); err != nil { // consume '['
		return nil, err
	}
	var elems []tree.Value
	for p.cur.Kind != token.RBRACK {
		switch p.cur.Kind {
		case token.EOF:
			return nil, p.errorf("unterminated list")
		case token.LBRACK:
			sub, err := p.parseList()
			if err != nil {
				return nil, err
			}
			elems = append(elems, sub)
			continue
		case token.LBRACE:
			return nil, p.errorf("a list may not contain a struct literal")
		case token.INT:
			elems = append(elems, tree.Int(p.cur.IntVal))
		case token.FLOAT:
			elems = append(elems, tree.Float(p.cur.FloatVal))
		case token.STRING:
			elems = append(elems, tree.String(p.cur.StrVal))
		case token.TRUE:
			elems = append(elems, tree.Bool(true))
		case token.FALSE:
			elems = append(elems, tree.Bool(false))
		case token.NONE:
			elems = append(elems, tree.Null{})
		default:
			return nil, p.errorf("invalid list element %s", p.cur.Kind)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.advance(); err != nil { // consume ']'
		return nil, err
	}
	return tree.NewList(elems...), nil
}
