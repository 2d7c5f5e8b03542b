package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/submod/internal/manager"
)

type reportOptions struct {
	format string
}

func (o *reportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "table", "Output format (table, json or yaml)")
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report the state of every configured submodule",
		Long: `Inspect every configured submodule and report configuration problems,
missing checkouts, local modifications and sparse-checkout drift.
A problem with one submodule does not stop the others from being checked.`,
		Example: `  submod check
  submod check --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(opts.format)
			if err != nil {
				return err
			}
			m, err := g.manager()
			if err != nil {
				return err
			}
			results, err := m.Check(commandContext(cmd))
			if err != nil {
				return err
			}
			if format != "table" {
				return writeStructured(cmd.OutOrStdout(), format, results)
			}
			return renderCheck(cmd.OutOrStdout(), results)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func renderCheck(w io.Writer, results []manager.CheckResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No submodules configured.")
		return nil
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		sparse := "-"
		if r.Sparse != nil {
			sparse = r.Sparse.State.String()
		}
		detail := r.Error
		if len(r.Problems) > 0 {
			detail = joinOrDash(r.Problems)
		}
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{r.Name, r.Path, string(r.State), yesNo(r.Active), sparse, detail})
	}
	return renderTable(w, []string{"Name", "Path", "State", "Active", "Sparse", "Details"}, rows)
}

func newListCmd(g *globalOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured submodules with their effective settings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(opts.format)
			if err != nil {
				return err
			}
			m, err := g.manager()
			if err != nil {
				return err
			}
			items, err := m.List(commandContext(cmd))
			if err != nil {
				return err
			}
			if format != "table" {
				return writeStructured(cmd.OutOrStdout(), format, items)
			}
			return renderList(cmd.OutOrStdout(), items)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func renderList(w io.Writer, items []manager.ListItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No submodules configured.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.Name,
			it.Path,
			it.URL,
			string(it.Branch),
			string(it.Update),
			yesNo(it.Active),
			joinOrDash(it.SparsePaths),
			yesNo(it.CheckedOut),
		})
	}
	return renderTable(w, []string{"Name", "Path", "URL", "Branch", "Update", "Active", "Sparse", "Checked Out"}, rows)
}

type resetOptions struct {
	all bool
}

func newResetCmd(g *globalOptions) *cobra.Command {
	opts := &resetOptions{}

	cmd := &cobra.Command{
		Use:   "reset [--all | name...]",
		Short: "Discard local changes in submodules",
		Long: `Stash local changes, hard reset to HEAD and remove untracked files in
the named submodules or, with --all, in every active submodule. A failure
in one submodule does not stop the others.`,
		Example: `  submod reset lib
  submod reset --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.all && len(args) > 0 {
				return fmt.Errorf("--all cannot be combined with submodule names")
			}
			m, err := g.manager()
			if err != nil {
				return err
			}
			results, err := m.Reset(commandContext(cmd), opts.all, args)
			out := cmd.OutOrStdout()
			for _, r := range results {
				switch {
				case !r.OK():
					fmt.Fprintf(out, "%s: failed: %v\n", r.Name, r.Err)
				case r.Warning != "":
					fmt.Fprintf(out, "%s: reset (warning: %s)\n", r.Name, r.Warning)
				default:
					fmt.Fprintf(out, "%s: reset\n", r.Name)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Reset every active submodule")
	return cmd
}
