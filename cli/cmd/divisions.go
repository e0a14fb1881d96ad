package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/nestedset"
)

var (
	placementKind   string
	placementAnchor string
)

// placement builds a placement from the --placement and --anchor flags.
func placement(book string) (nestedset.Placement, error) {
	kind, err := nestedset.ParseKind(placementKind)
	if err != nil {
		return nestedset.Placement{}, err
	}
	if kind == nestedset.Root {
		return nestedset.AsRoot(book), nil
	}
	if placementAnchor == "" {
		return nestedset.Placement{}, fmt.Errorf("--anchor is required for %s placement", kind)
	}
	anchor, err := division.ParseID(placementAnchor)
	if err != nil {
		return nestedset.Placement{}, err
	}
	return nestedset.Placement{Kind: kind, Anchor: anchor, Book: book}, nil
}

func addPlacementFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&placementKind, "placement", "p", "root",
		"Placement: root, first-child, last-child, before or after")
	cmd.Flags().StringVarP(&placementAnchor, "anchor", "a", "", "Division the placement is relative to")
}

func parseIDArg(args []string) (division.ID, error) {
	return division.ParseID(args[0])
}

var createCmd = &cobra.Command{
	Use:   "create [book] [title]",
	Short: "Create a division",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := placement(args[0])
		if err != nil {
			return err
		}
		d, err := newClient().Create(cmd.Context(), args[0], args[1], p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.ID)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one division",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}
		d, err := newClient().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printDivisions(cmd.OutOrStdout(), []division.Division{d})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [id] [title]",
	Short: "Rename a division",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}
		_, err = newClient().Rename(cmd.Context(), id, args[1])
		return err
	},
}

var moveCmd = &cobra.Command{
	Use:   "move [id]",
	Short: "Move a division and its subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}
		p, err := placement("")
		if err != nil {
			return err
		}
		d, err := newClient().Move(cmd.Context(), id, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "moved %s to [%d,%d]\n", d.ID, d.Left, d.Right)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a division and its subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args)
		if err != nil {
			return err
		}
		n, err := newClient().Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d divisions\n", n)
		return nil
	},
}

func newRelativesCmd(relation string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   relation + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args)
			if err != nil {
				return err
			}
			divs, err := newClient().Relatives(cmd.Context(), id, relation)
			if err != nil {
				return err
			}
			return printDivisions(cmd.OutOrStdout(), divs)
		},
	}
}

func init() {
	addPlacementFlags(createCmd)
	addPlacementFlags(moveCmd)

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(newRelativesCmd("children", "List the children of a division"))
	rootCmd.AddCommand(newRelativesCmd("ancestors", "List the ancestors of a division, root first"))
	rootCmd.AddCommand(newRelativesCmd("descendants", "List the descendants of a division in pre-order"))
}
