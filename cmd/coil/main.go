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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/coil-config/coil"
	"github.com/coil-config/coil/coilyaml"
	"github.com/coil-config/coil/internal/coilfs"
	"github.com/coil-config/coil/print"
	"github.com/coil-config/coil/resolver"
	"github.com/coil-config/coil/tree"
)

var (
	flagPackagePath []string
)

func main() {
	// A missing .env is not an error, only a source of defaults the flags
	// below can still override.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "coil",
		Short: "Work with Coil configuration files",
	}
	root.PersistentFlags().StringSliceVar(&flagPackagePath, "package-path", envPackagePath(),
		"directories searched for \"@package\" includes, in order (default from $COIL_PACKAGE_PATH)")

	root.AddCommand(newParseCmd(), newGetCmd(), newDictCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envPackagePath() []string {
	v := os.Getenv("COIL_PACKAGE_PATH")
	if v == "" {
		return nil
	}
	return filepath.SplitList(v)
}

// parseFile parses the file at path. The resolver is rooted at path's own
// directory, so the file itself is read through it by base name.
func parseFile(path string) (*tree.Struct, error) {
	return coil.ParseFile(filepath.Base(path), fileResolver(path))
}

func fileResolver(path string) resolver.Resolver {
	return &combinedResolver{
		file: coilfs.NewFileResolver(filepath.Dir(path)),
		pkg:  coilfs.NewPackageResolver(flagPackagePath...),
	}
}

// combinedResolver dispatches "@file" to a FileResolver rooted at the
// parsed file's own directory and "@package" to a PackageResolver
// searching --package-path, since neither resolver in internal/coilfs
// supports both directive kinds on its own.
type combinedResolver struct {
	file *coilfs.FileResolver
	pkg  *coilfs.PackageResolver
}

func (r *combinedResolver) ResolveFile(path string) (string, error) {
	return r.file.ResolveFile(path)
}

func (r *combinedResolver) ResolvePackage(spec string) (string, error) {
	return r.pkg.ResolvePackage(spec)
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Validate a Coil file and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseFile(args[0])
			if err != nil {
				return err
			}
			out, err := print.String(root)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> <path>",
		Short: "Print one resolved value from a Coil file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseFile(args[0])
			if err != nil {
				return err
			}
			v, err := root.Get(args[1])
			if err != nil {
				return err
			}
			fmt.Println(tree.Unwrap(v))
			return nil
		},
	}
}

func newDictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dict <file>",
		Short: "Print a Coil file's fully resolved value tree as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseFile(args[0])
			if err != nil {
				return err
			}
			out, err := coilyaml.Marshal(root)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}
