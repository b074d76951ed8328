// Package commands contains the available envee cli commands.
package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jeffrom/envee/stdio"
)

const envPrefix = "ENVEE"

func ExecArgs(ctx context.Context, args []string) error {
	o := stdio.FromContext(ctx)
	ctx = stdio.SetContext(ctx, o)

	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "envee",
		Short:         "compare app versions across environments and show the commits between them",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				o.Verbose = true
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages to stderr")
	rootCmd.SetOut(o.Stdout())
	rootCmd.SetErr(o.Stderr())

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// bindFlags returns a viper instance reading each of cmd's flags, falling
// back to ENVEE_<FLAG> environment variables and then the flag default.
func bindFlags(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "help" {
			return
		}
		if err = v.BindPFlag(f.Name, f); err != nil {
			return
		}
		err = v.BindEnv(f.Name, envName(f.Name))
	})
	return v, err
}

func envName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
