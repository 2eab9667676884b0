// Package source extracts the package, top-level types and imports of Java sources.
// The compiler erases imports from bytecode, so they are read from the source text
// and registered with the dependency store.
package source

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Unit is the dependency relevant part of one compilation unit.
type Unit struct {
	// Path is the source path relative to the scanned root.
	Path    string   `yaml:"path"`
	Package string   `yaml:"package,omitempty"`
	Types   []string `yaml:"types,omitempty"`
	// Imports hold single-type and on-demand imports in dotted form, e.g. "java.util.List" or "java.util.*".
	Imports []string `yaml:"imports,omitempty"`
	// StaticImports hold static member and static on-demand imports, e.g. "java.lang.Math.max" or "java.lang.Math.*".
	StaticImports []string `yaml:"staticImports,omitempty"`
}

// ClassNames returns the binary names of the top-level types.
func (u *Unit) ClassNames() []string {
	ret := make([]string, 0, len(u.Types))
	for _, t := range u.Types {
		if u.Package == "" {
			ret = append(ret, t)
			continue
		}
		ret = append(ret, u.Package+"."+t)
	}
	return ret
}

// Parse extracts the unit of a Java source.
func Parse(ctx context.Context, path string, src []byte) (*Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()
	root := tree.RootNode()
	ret := &Unit{Path: path}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			ret.Package = packageName(child, src)
		case "import_declaration":
			name, static := importName(child, src)
			if name == "" {
				continue
			}
			if static {
				ret.StaticImports = append(ret.StaticImports, name)
			} else {
				ret.Imports = append(ret.Imports, name)
			}
		case "class_declaration", "interface_declaration", "enum_declaration", "annotation_type_declaration", "record_declaration":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				ret.Types = append(ret.Types, nameNode.Content(src))
			}
		}
	}
	return ret, nil
}

func packageName(node *sitter.Node, src []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier", "scoped_identifier":
			return child.Content(src)
		}
	}
	return ""
}

// importName returns the dotted import target, with a ".*" suffix for on-demand imports.
func importName(node *sitter.Node, src []byte) (name string, static bool) {
	wildcard := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			static = true
		case "identifier", "scoped_identifier":
			name = strings.Join(strings.Fields(child.Content(src)), "")
		case "asterisk":
			wildcard = true
		}
	}
	if name != "" && wildcard {
		name += ".*"
	}
	return name, static
}
