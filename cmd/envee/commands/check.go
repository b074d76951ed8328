package commands

import (
	"context"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeffrom/envee/stdio"
	"github.com/jeffrom/envee/versions"
)

const validMessage = "versions file is valid ✅"

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "check a versions file for validation errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := bindFlags(cmd)
			if err != nil {
				return err
			}

			if _, err := loadVersions(ctx, v); err != nil {
				return err
			}
			stdio.FromContext(ctx).Println(validMessage)
			return nil
		},
	}

	addVersionsFlags(cmd)
	return cmd
}

func addVersionsFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("versions", "V", "versions.toml", "path to the versions file")
	flags.StringP("filter", "f", "", "only include apps matching this regex")
	flags.StringSliceP("exclude", "x", nil, "exclude apps matching these globs")
}

func compileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "invalid regex pattern provided")
	}
	return re, nil
}

// loadVersions loads the versions file named by the versions flags, warning
// about records which are overridden by later ones.
func loadVersions(ctx context.Context, v *viper.Viper) (*versions.Versions, error) {
	o := stdio.FromContext(ctx).AppendScope("versions")

	filter, err := compileFilter(v.GetString("filter"))
	if err != nil {
		return nil, err
	}

	path := v.GetString("versions")
	o.Debug("loading versions", "path", path)
	vs, err := versions.Load(path, versions.LoadOpts{
		Filter:  filter,
		Exclude: v.GetStringSlice("exclude"),
	})
	if err != nil {
		return nil, err
	}

	for _, dup := range vs.Duplicates() {
		o.Warning("duplicate version records, the last one is used", "app", dup.App, "env", dup.Env, "count", dup.Count)
	}
	return vs, nil
}
