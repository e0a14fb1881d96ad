package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/outline/cli/util"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
)

var showFlat bool

var colors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgBlue),
	color.New(color.FgYellow),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgHiRed),
	color.New(color.FgHiBlue),
	color.New(color.FgHiYellow),
	color.New(color.FgHiCyan),
	color.New(color.FgHiGreen),
	color.New(color.FgHiMagenta),
}

var faint = color.New(color.Faint)

func depthColor(depth int) *color.Color {
	return colors[depth%len(colors)]
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := newClient().Books(cmd.Context())
		if err != nil {
			return err
		}
		for _, book := range books {
			fmt.Fprintln(cmd.OutOrStdout(), book)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [book]",
	Short: "Show the outline of a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		out := cmd.OutOrStdout()
		if showFlat {
			divs, err := c.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDivisions(out, divs)
		}
		tree, err := c.Tree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printTree(out, tree)
		return nil
	},
}

func printTree(w io.Writer, nodes []*nestedset.Node) {
	for _, node := range nodes {
		indent := ""
		for i := 0; i < node.Depth; i++ {
			indent += "  "
		}
		depthColor(node.Depth).Fprint(w, indent+node.Title)
		faint.Fprintf(w, " %s [%d,%d]\n", node.ID, node.Left, node.Right)
		printTree(w, node.Children)
	}
}

func printDivisions(w io.Writer, divs []division.Division) error {
	rows := make([][]string, 0, len(divs))
	for _, d := range divs {
		rows = append(rows, []string{
			d.ID.String(),
			d.Title,
			strconv.Itoa(d.Left),
			strconv.Itoa(d.Right),
			strconv.Itoa(d.Depth),
			strconv.Itoa(d.Order),
			d.ParentID.String(),
		})
	}
	return util.PrintTable(w, []string{"id", "title", "left", "right", "depth", "order", "parent"}, rows)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [book]",
	Short: "Renumber a book from parent references and sibling order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().Rebuild(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %s: %d divisions, %d changed, %d promoted\n",
			result.Book, result.Divisions, result.Changed, len(result.Promoted))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [book]",
	Short: "Check the nested-set invariants of a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Verify(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(verifyCmd)

	showCmd.Flags().BoolVarP(&showFlat, "flat", "f", false, "Print a table of divisions in pre-order")
}
