package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/submod/internal/manager"
)

// commandContext returns the command's context, which is nil when a
// command is executed directly in tests
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newInitCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [name...]",
		Short: "Initialize configured submodules",
		Long: `Clone and check out configured submodules. Without names every active
submodule is initialized. Sparse-checkout paths are reapplied to
submodules that are already checked out.`,
		Example: `  submod init
  submod init lib docs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if len(args) == 0 {
				return m.InitAll(ctx)
			}
			for _, name := range args {
				if err := m.Init(ctx, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

type updateOptions struct {
	remote    bool
	recursive bool
}

func (o *updateOptions) request() manager.UpdateRequest {
	return manager.UpdateRequest{Remote: o.remote, Recursive: o.recursive}
}

func (o *updateOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.remote, "remote", false, "Update to the tip of the tracked branch")
	cmd.Flags().BoolVar(&o.recursive, "recursive", false, "Update nested submodules")
}

func newUpdateCmd(g *globalOptions) *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "update [name...]",
		Short: "Update configured submodules",
		Long: `Update submodules with their configured strategy. Without names every
active submodule is updated.`,
		Example: `  submod update
  submod update lib --remote`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if len(args) == 0 {
				return m.UpdateAll(ctx, opts.request())
			}
			for _, name := range args {
				if err := m.Update(ctx, name, opts.request()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func newSyncCmd(g *globalOptions) *cobra.Command {
	opts := &updateOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Check, initialize and update every active submodule",
		Long: `Run check, then init and update for every active submodule. The
sequence stops at the first failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			if _, err := m.Sync(commandContext(cmd), opts.request()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Submodules synchronized")
			return nil
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func newDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a submodule and its configuration",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			if err := m.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted submodule %s\n", args[0])
			return nil
		},
	}
}

func newDisableCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Mark a submodule inactive",
		Long: `Set active = false for a submodule in both git config and the
configuration file. Bulk commands skip inactive submodules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			if err := m.Disable(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disabled submodule %s\n", args[0])
			return nil
		},
	}
}

func newDeinitCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "deinit <name>",
		Short: "Remove a submodule's working tree and keep its configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			return m.Deinit(commandContext(cmd), args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Discard local modifications")
	return cmd
}

func newGenerateConfigCmd(g *globalOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write the configuration file from .gitmodules",
		Long: `Import every submodule registered in .gitmodules into the configuration
file. Existing entries are kept unless --overwrite is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := g.manager()
			if err != nil {
				return err
			}
			names, err := m.GenerateConfig(commandContext(cmd), overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d submodule(s) into %s\n", len(names), m.Store().Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace entries that already exist")
	return cmd
}
