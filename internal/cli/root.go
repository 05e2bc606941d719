package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"choco-cli/internal/adapters"
	"choco-cli/internal/app"
	"choco-cli/internal/shared"
	"choco-cli/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	envPrefix  = "CHOCO"
	configName = "choco"
)

type RootConfig struct {
	ConfigFile  string
	LogLevel    string
	Debug       bool
	Verbose     bool
	InstallRoot string
}

// invocation holds what every command of one process run shares.
type invocation struct {
	exit *types.ExitStatus
	out  io.Writer
}

func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one command line and returns the process exit code. A code
// recorded in the exit status wins over the one derived from err.
func run(args []string, out io.Writer) int {
	viper.Reset()
	inv := &invocation{exit: types.NewExitStatus(), out: out}
	root := newRootCommand(inv)
	root.SetArgs(args)
	root.SetOut(out)
	cmd, err := root.ExecuteC()
	if err != nil {
		log.Error().Msg(errorMessage(err))
		if errbuilder.CodeOf(err) == errbuilder.CodeInvalidArgument && cmd != nil {
			fmt.Fprintf(out, "Run '%s --help' for usage.\n", cmd.CommandPath())
		}
		return exitCodeForError(err, inv.exit)
	}
	return inv.exit.Get()
}

func newRootCommand(inv *invocation) *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "choco",
		Short:         "Package manager for installing and maintaining software packages",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			level := viper.GetString("log_level")
			switch {
			case cfg.Verbose:
				level = "trace"
			case cfg.Debug:
				level = "debug"
			}
			setupLogging(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	cmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Show debug messages")
	cmd.PersistentFlags().BoolVar(&cfg.Verbose, "verbose", false, "Show trace messages")
	cmd.PersistentFlags().StringVar(&cfg.InstallRoot, "install-root", "", "Install root (defaults to $ChocolateyInstall)")
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("install_root", cmd.PersistentFlags().Lookup("install-root"))

	cmd.AddCommand(newInstallCommand(inv))
	cmd.AddCommand(newUpgradeCommand(inv))
	cmd.AddCommand(newUninstallCommand(inv))
	cmd.AddCommand(newListCommand(inv))
	cmd.AddCommand(newSearchCommand(inv))
	cmd.AddCommand(newOutdatedCommand(inv))
	cmd.AddCommand(newPackCommand(inv))
	cmd.AddCommand(newPushCommand(inv))
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("install_root", envPrefix+"_INSTALL_ROOT", types.EnvInstallRoot)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("default_source", types.DefaultFeedSource)
	viper.SetDefault("command_execution_timeout_seconds", types.DefaultTimeoutSeconds)
	viper.SetDefault("features.use_package_exit_codes", true)
	viper.SetDefault("features.auto_uninstaller", true)

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/choco")
	viper.AddConfigPath(filepath.Join(installRoot(), "config"))
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// installRoot returns the configured install root, falling back to
// ~/.chocolatey.
func installRoot() string {
	if root := strings.TrimSpace(viper.GetString("install_root")); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chocolatey"
	}
	return filepath.Join(home, ".chocolatey")
}

// service wires the application service for one command.
func (inv *invocation) service(cmd *cobra.Command) app.Service {
	svc := app.NewService(types.NewInstallPaths(installRoot()), inv.exit, inv.out)
	bus := adapters.NewEventBusAdapter()
	bus.Subscribe(logEvent)
	svc.Events = bus
	svc.ExplicitFlag = func(name string) bool { return flagChanged(cmd, name) }
	return svc
}

func logEvent(event types.OperationEvent) {
	entry := log.Debug().
		Str("event", string(event.Kind)).
		Str("id", event.ID).
		Str("command", string(event.Command))
	if event.PackageName != "" {
		entry = entry.Str("pkg", event.PackageName).Str("version", event.Version).Int("exit_code", event.ExitCode)
	}
	entry.Bool("success", event.Success).Msg("operation event")
}

// exitCodeForError prefers a recorded exit status, so reboot and
// no-results codes survive a failing command.
func exitCodeForError(err error, exit *types.ExitStatus) int {
	if exit != nil {
		if code := exit.Get(); code != types.ExitCodeSuccess {
			return code
		}
	}
	if err == nil {
		return types.ExitCodeSuccess
	}
	return types.ExitCodeFailure
}

func errorMessage(err error) string {
	return shared.ErrorMessage(err)
}
