package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/tagtical/display"
	"github.com/teranos/tagtical/sym"
	"github.com/teranos/tagtical/taxonomy"
)

// typeNode is the JSON form of the tag type tree.
type typeNode struct {
	Name     string     `json:"name"`
	Children []typeNode `json:"children,omitempty"`
}

// kindNode is the JSON form of the kind tree with each kind's own contexts.
type kindNode struct {
	Name     string            `json:"name"`
	Contexts map[string]string `json:"contexts,omitempty"` // context -> tag type
	Children []kindNode        `json:"children,omitempty"`
}

func (a *app) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: sym.Short("types"),
		Long: sym.Types + ` types - Show the tag type and kind hierarchy

Prints the tag type tree of the configured taxonomy, then every taggable kind
with the contexts it declares and the type each context is bound to.
Sub-kinds inherit the contexts of their parents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.taxonomy()
			if err != nil {
				return err
			}

			if a.wantJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), struct {
					Types typeNode   `json:"types"`
					Kinds []kindNode `json:"kinds"`
				}{typeTree(reg, reg.Root().Name), kindTrees(reg)})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Tag types:")
			if err := display.Tree(w, typeItems(reg, reg.Root().Name, 0)); err != nil {
				return err
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Kinds:")
			var items []display.TreeItem
			for _, k := range rootKinds(reg) {
				items = append(items, kindItems(reg, k, 0)...)
			}
			return display.Tree(w, items)
		},
	}
}

func typeTree(reg *taxonomy.Registry, name string) typeNode {
	n := typeNode{Name: name}
	for _, c := range reg.Children(name) {
		n.Children = append(n.Children, typeTree(reg, c))
	}
	return n
}

func typeItems(reg *taxonomy.Registry, name string, level int) []display.TreeItem {
	items := []display.TreeItem{{Level: level, Text: name}}
	for _, c := range reg.Children(name) {
		items = append(items, typeItems(reg, c, level+1)...)
	}
	return items
}

func rootKinds(reg *taxonomy.Registry) []string {
	var roots []string
	for _, name := range reg.Kinds() {
		if k, _ := reg.Kind(name); k.Parent == "" {
			roots = append(roots, name)
		}
	}
	return roots
}

// ownContexts returns the contexts declared on kind itself, not inherited.
func ownContexts(reg *taxonomy.Registry, kind string) []taxonomy.Context {
	var out []taxonomy.Context
	for _, c := range reg.Contexts(kind) {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func kindTrees(reg *taxonomy.Registry) []kindNode {
	var build func(string) kindNode
	build = func(name string) kindNode {
		n := kindNode{Name: name}
		for _, c := range ownContexts(reg, name) {
			if n.Contexts == nil {
				n.Contexts = make(map[string]string)
			}
			n.Contexts[c.Name] = c.Type
		}
		for _, child := range reg.KindChildren(name) {
			n.Children = append(n.Children, build(child))
		}
		return n
	}

	var out []kindNode
	for _, k := range rootKinds(reg) {
		out = append(out, build(k))
	}
	return out
}

func kindItems(reg *taxonomy.Registry, kind string, level int) []display.TreeItem {
	items := []display.TreeItem{{Level: level, Text: kind}}
	for _, c := range ownContexts(reg, kind) {
		items = append(items, display.TreeItem{Level: level + 1, Text: fmt.Sprintf("%s %s %s", c.Name, sym.Arrow, c.Type)})
	}
	for _, child := range reg.KindChildren(kind) {
		items = append(items, kindItems(reg, child, level+1)...)
	}
	return items
}
