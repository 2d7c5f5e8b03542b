package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/NicabarNimble/submod/internal/config"
	"github.com/NicabarNimble/submod/internal/git"
	"github.com/NicabarNimble/submod/internal/git/gitcli"
	"github.com/NicabarNimble/submod/internal/git/gogit"
	"github.com/NicabarNimble/submod/internal/logger"
	"github.com/NicabarNimble/submod/internal/manager"
	"github.com/NicabarNimble/submod/internal/progress"
	"github.com/NicabarNimble/submod/internal/token"
)

const envPrefix = "SUBMOD"

// globalOptions holds the persistent flags after viper has merged them
// with SUBMOD_* environment variables
type globalOptions struct {
	v   *viper.Viper
	log *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{v: viper.New()}
	g.v.SetEnvPrefix(envPrefix)
	g.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	g.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "submod",
		Short: "Manage git submodules declared in a TOML file",
		Long: `submod keeps git submodules in sync with a submod.toml file.
Each submodule can be limited to a set of sparse-checkout paths. Git
operations run through go-git first and fall back to the git executable
when go-git cannot perform them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setupLogging()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "submod.toml", "Path to the submodule configuration file")
	flags.String("dir", ".", "Superproject working tree")
	flags.String("log-level", "info", "Log level (debug, info, warn or error)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.StringArray("token", nil, "HTTPS token as provider=token, or a bare GitHub/GitLab token (repeatable)")
	flags.String("default-ignore", "", "Override the ignore default of the configuration file")
	flags.String("default-update", "", "Override the update default of the configuration file")
	flags.String("default-branch", "", "Override the branch default of the configuration file")
	flags.String("default-fetch-recurse", "", "Override the fetchRecurse default of the configuration file")
	bindFlags(g.v, flags)

	cmd.AddCommand(
		newAddCmd(g),
		newCheckCmd(g),
		newInitCmd(g),
		newUpdateCmd(g),
		newResetCmd(g),
		newSyncCmd(g),
		newListCmd(g),
		newDeleteCmd(g),
		newDisableCmd(g),
		newDeinitCmd(g),
		newGenerateConfigCmd(g),
	)

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

func (g *globalOptions) setupLogging() error {
	level := g.v.GetString("log-level")
	if g.v.GetBool("verbose") {
		level = "debug"
	}
	log, err := logger.Initialize(os.Stderr, level)
	if err != nil {
		return err
	}
	g.log = log
	return nil
}

func (g *globalOptions) logger() *zap.SugaredLogger {
	if g.log == nil {
		return logger.Get()
	}
	return g.log
}

// overrides returns the defaults supplied on the command line
func (g *globalOptions) overrides() (config.Defaults, error) {
	var d config.Defaults
	var err error
	if d.Ignore, err = config.ParseIgnore(g.v.GetString("default-ignore")); err != nil {
		return d, err
	}
	if d.Update, err = config.ParseUpdate(g.v.GetString("default-update")); err != nil {
		return d, err
	}
	if d.FetchRecurse, err = config.ParseFetchRecurse(g.v.GetString("default-fetch-recurse")); err != nil {
		return d, err
	}
	if b := g.v.GetString("default-branch"); b != "" {
		d.Branch = config.ParseBranch(b)
	}
	return d, nil
}

// manager wires the go-git and git-cli backends behind a fallback chain
func (g *globalOptions) manager() (*manager.Manager, error) {
	overrides, err := g.overrides()
	if err != nil {
		return nil, err
	}

	log := g.logger()
	root := g.v.GetString("dir")
	creds, err := g.credentials(log)
	if err != nil {
		return nil, err
	}

	primary, err := gogit.New(root, log,
		gogit.WithCredentials(creds),
		gogit.WithProgress(os.Stderr),
	)
	if err != nil {
		return nil, err
	}

	runner := git.NewExecRunner(log)
	runner.Progress = progress.NewWriter("git: ", os.Stderr)
	if !runner.Available() {
		log.Warnw("git executable not found, operations go-git cannot perform will fail")
	}
	secondary := gitcli.New(root, runner, log, gitcli.WithCredentials(creds))

	store := config.NewStore(g.v.GetString("config"), overrides)
	backend := git.NewFallback(log, primary, secondary)
	return manager.New(root, backend, store, log,
		manager.WithTracker(progress.NewConsoleTracker(os.Stderr)),
	), nil
}

// credentials resolves tokens from --token values first, then from
// GIT_TOKEN_* environment variables
func (g *globalOptions) credentials(log *zap.SugaredLogger) (*token.Resolver, error) {
	ctx := context.Background()
	flagTokens, err := token.NewFlagStorage(ctx, g.v.GetStringSlice("token"))
	if err != nil {
		return nil, fmt.Errorf("invalid --token: %w", err)
	}
	creds := token.NewResolver(log, flagTokens, token.NewEnvStorage())
	log.Debugw("token providers", "providers", creds.Providers(ctx))
	return creds, nil
}

// outputFormat validates a --format value
func outputFormat(s string) (string, error) {
	switch f := strings.ToLower(s); f {
	case "table", "json", "yaml":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q (want table, json or yaml)", s)
	}
}
