package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/manager"
)

type addOptions struct {
	name         string
	path         string
	branch       string
	ignore       string
	update       string
	fetchRecurse string
	shallow      bool
	sparse       []string
}

func newAddCmd(g *globalOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a submodule",
		Long: `Clone a repository as a submodule and record it in the configuration file.
When sparse paths are given only those paths are checked out.`,
		Example: `  submod add https://github.com/org/lib.git
  submod add https://github.com/org/lib.git --name lib --path vendor/lib --sparse src,docs
  submod add ../lib --branch . --shallow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args[0])
			if err != nil {
				return err
			}
			m, err := g.manager()
			if err != nil {
				return err
			}
			e, err := m.Add(commandContext(cmd), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added submodule %s at %s\n", e.Name, e.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Submodule name (default: repository name)")
	cmd.Flags().StringVar(&opts.path, "path", "", "Checkout path relative to the superproject (default: name)")
	cmd.Flags().StringVarP(&opts.branch, "branch", "b", "", "Branch to track, \".\" for the superproject's current branch")
	cmd.Flags().StringVar(&opts.ignore, "ignore", "", "Ignore rule (all, dirty, untracked or none)")
	cmd.Flags().StringVar(&opts.update, "update", "", "Update strategy (checkout, rebase, merge or none)")
	cmd.Flags().StringVar(&opts.fetchRecurse, "fetch-recurse", "", "Fetch recursion (on-demand, always or never)")
	cmd.Flags().BoolVar(&opts.shallow, "shallow", false, "Clone with depth 1")
	cmd.Flags().StringSliceVar(&opts.sparse, "sparse", nil, "Sparse-checkout paths")

	return cmd
}

func (o *addOptions) request(url string) (manager.AddRequest, error) {
	req := manager.AddRequest{
		Name:        o.name,
		Path:        o.path,
		URL:         url,
		Shallow:     o.shallow,
		SparsePaths: o.sparse,
	}
	var err error
	if req.Ignore, err = config.ParseIgnore(o.ignore); err != nil {
		return req, err
	}
	if req.Update, err = config.ParseUpdate(o.update); err != nil {
		return req, err
	}
	if req.FetchRecurse, err = config.ParseFetchRecurse(o.fetchRecurse); err != nil {
		return req, err
	}
	if o.branch != "" {
		req.Branch = config.ParseBranch(o.branch)
	}
	return req, nil
}
