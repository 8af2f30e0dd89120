package root

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rulekit/rulekit/pkg/cmd/setup"
	"github.com/rulekit/rulekit/pkg/cmd/verify"
	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/utils/log"
)

var ErrCommandRequired = errors.New("a command is required")

func NewCommand(version string) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "rulekit",
		Short: "Set up Cursor rules and task buckets in the current directory",
		Long: `
rulekit copies the rules and tasks folders bundled next to its executable
into the current working directory:

  <bundle>/.cursor/rules  ->  ./.cursor/rules
  <bundle>/.tasks         ->  ./.tasks

Existing files with the same name are overwritten, other files are kept.
The task buckets 0-draft, 1-now, 2-next, 3-later and 9-done are created
under ./.tasks if they are missing.

Settings can be given in a config file (--config) or in the environment:
  RULEKIT_BUNDLE_DIR        where the bundled folders are (default: next to the executable)
  RULEKIT_CONCURRENT_FILES  files copied at the same time (default: 8)
  RULEKIT_BLOCK_SIZE        read/write block size (default: 256k)
Both setup and verify read them. The flags of verify take precedence.
`,
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return ErrCommandRequired
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.CountVarP(&log.Verbosity, "verbose", "v", "Enable verbose output (-v for debug, -vv for trace)")
	pf.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")

	provider := config.Provider(func() (*viper.Viper, error) {
		return config.New(configFile)
	})

	cmd.AddCommand(
		setup.NewCommand(provider),
		verify.NewCommand(provider),
	)

	return cmd
}
