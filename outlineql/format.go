package outlineql

import (
	"strconv"
	"strings"

	"github.com/wkalt/outline/nestedset"
)

// Format renders a division tree as an outline document. If book is
// non-empty the document names it. The output parses back to the same
// titles and shape.
func Format(book string, tree []*nestedset.Node) string {
	sb := &strings.Builder{}
	if book != "" {
		sb.WriteString("book ")
		sb.WriteString(strconv.Quote(book))
		sb.WriteString("\n\n")
	}
	for _, node := range tree {
		formatNode(sb, node, 0)
	}
	return sb.String()
}

func formatNode(sb *strings.Builder, node *nestedset.Node, depth int) {
	sb.WriteString(strings.Repeat("\t", depth))
	sb.WriteString(strconv.Quote(node.Title))
	if len(node.Children) == 0 {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(" {\n")
	for _, child := range node.Children {
		formatNode(sb, child, depth+1)
	}
	sb.WriteString(strings.Repeat("\t", depth))
	sb.WriteString("}\n")
}
