package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"choco-cli/internal/app"
	"choco-cli/internal/types"
)

type packageAction func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error

// packageCommand builds a command whose RunE resolves its options into an
// operation configuration and hands it to action.
func (inv *invocation) packageCommand(use, short string, opts *packageOptions, action packageAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := inv.service(cmd)
			cfg := opts.configuration(cmd, svc.Runners, args)
			ctx := log.Logger.WithContext(cmd.Context())
			return action(ctx, svc, cfg)
		},
	}
}

func newInstallCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("install <pkg|packages.config> [pkg...]", "Install packages from a source", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			_, err := svc.Install(ctx, cfg)
			return err
		})
	cmd.Args = cobra.MinimumNArgs(1)
	addSourceFlags(cmd, opts)
	addChangeFlags(cmd, opts)
	addInstallFlags(cmd, opts)
	return cmd
}

func newUpgradeCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("upgrade <pkg|all> [pkg...]", "Upgrade installed packages", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			_, err := svc.Upgrade(ctx, cfg)
			return err
		})
	cmd.Args = cobra.MinimumNArgs(1)
	addSourceFlags(cmd, opts)
	addChangeFlags(cmd, opts)
	addInstallFlags(cmd, opts)
	addUpgradeFlags(cmd, opts)
	return cmd
}

func newUninstallCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("uninstall <pkg> [pkg...]", "Uninstall packages", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			_, err := svc.Uninstall(ctx, cfg)
			return err
		})
	cmd.Args = cobra.MinimumNArgs(1)
	addSourceFlags(cmd, opts)
	addChangeFlags(cmd, opts)
	addUninstallFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.PackageParameters, "package-parameters", "", "Parameters passed to the package")
	return cmd
}

// newListCommand lists installed packages. Use search to query sources.
func newListCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("list [filter]", "List installed packages", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			cfg.ListSettings.LocalOnly = true
			_, err := svc.List(ctx, cfg)
			return err
		})
	cmd.Args = cobra.MaximumNArgs(1)
	addListFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Source type (python, ruby, cygwin, windowsfeatures)")
	return cmd
}

func newSearchCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("search [filter]", "Search sources for packages", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			_, err := svc.Search(ctx, cfg)
			return err
		})
	cmd.Args = cobra.MaximumNArgs(1)
	addSourceFlags(cmd, opts)
	addListFlags(cmd, opts)
	return cmd
}

func newOutdatedCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("outdated", "List installed packages with newer versions available", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			_, err := svc.Outdated(ctx, cfg)
			return err
		})
	cmd.Args = cobra.NoArgs
	addSourceFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.UseEnhancedExitCodes, "use-enhanced-exit-codes", false, "Return exit code 2 when nothing is outdated")
	return cmd
}

func newPackCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("pack [path/to/nuspec]", "Create a package archive from a nuspec", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			archive, err := svc.Pack(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(inv.out, archive)
			return nil
		})
	cmd.Args = cobra.MaximumNArgs(1)
	cmd.Flags().StringVar(&opts.OutputDirectory, "output-directory", "", "Directory the archive is written to")
	return cmd
}

func newPushCommand(inv *invocation) *cobra.Command {
	opts := &packageOptions{}
	cmd := inv.packageCommand("push <path/to/nupkg>", "Publish a package archive to a folder source", opts,
		func(ctx context.Context, svc app.Service, cfg *types.OperationConfiguration) error {
			return svc.Push(ctx, cfg)
		})
	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Folder source to push to")
	return cmd
}
