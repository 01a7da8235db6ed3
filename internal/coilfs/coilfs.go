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

// Package coilfs is the filesystem-backed resolver.Resolver used outside
// the core, by cmd/coil and by tests that want a real "@file"/"@package"
// collaborator rather than a hand-rolled stub.
package coilfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/multierr"

	"github.com/coil-config/coil/coilerr"
)

// FileResolver resolves "@file" directives relative to a fixed base
// directory: a directive's path is joined onto BaseDir and read whole.
type FileResolver struct {
	BaseDir string
}

// NewFileResolver returns a FileResolver rooted at baseDir.
func NewFileResolver(baseDir string) *FileResolver {
	return &FileResolver{BaseDir: baseDir}
}

// ResolveFile implements resolver.Resolver.
func (r *FileResolver) ResolveFile(path string) (string, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.BaseDir, path)
	}
	return readAll(full)
}

// ResolvePackage implements resolver.Resolver. FileResolver alone does not
// support "@package"; use PackageResolver, or embed both behind one
// resolver.Resolver that dispatches to whichever applies.
func (r *FileResolver) ResolvePackage(spec string) (string, error) {
	return "", coilerr.ErrUnsupported
}

// PackageResolver resolves "@package: pkg:resource" directives by treating
// pkg as a directory name under one of Roots and globbing Roots for a file
// named resource or resource.coil within it, so a package's resource may
// itself be a nested path ("pkg:sub/resource").
type PackageResolver struct {
	Roots []string
}

// NewPackageResolver returns a PackageResolver searching the given roots,
// in order, for the first match.
func NewPackageResolver(roots ...string) *PackageResolver {
	return &PackageResolver{Roots: roots}
}

// ResolveFile implements resolver.Resolver. PackageResolver alone does not
// support "@file".
func (r *PackageResolver) ResolveFile(path string) (string, error) {
	return "", coilerr.ErrUnsupported
}

// ResolvePackage implements resolver.Resolver.
func (r *PackageResolver) ResolvePackage(spec string) (string, error) {
	if len(r.Roots) == 0 {
		return "", coilerr.ErrUnsupported
	}
	pkg, resource, err := splitPackageSpec(spec)
	if err != nil {
		return "", err
	}
	for _, root := range r.Roots {
		pkgDir := filepath.Join(root, pkg)
		for _, candidate := range []string{resource, resource + ".coil"} {
			pattern := filepath.ToSlash(filepath.Join(pkgDir, candidate))
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				continue
			}
			if len(matches) > 0 {
				return readAll(matches[0])
			}
		}
	}
	return "", &coilerr.KeyMissingError{Key: spec}
}

func splitPackageSpec(spec string) (pkg, resource string, err error) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ':' {
			return spec[:i], spec[i+1:], nil
		}
	}
	return "", "", &coilerr.KeyValueError{Reason: fmt.Sprintf("malformed package spec %q, want \"pkg:resource\"", spec)}
}

// readAll reads the whole file at path, aggregating a Close failure
// alongside a Read failure via multierr rather than discarding one or the
// other (a resolver read is the one place in this module two independent
// I/O errors can legitimately occur together).
func readAll(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	data, readErr := io.ReadAll(f)
	closeErr := f.Close()
	if err := multierr.Combine(readErr, closeErr); err != nil {
		return "", err
	}
	return string(data), nil
}
