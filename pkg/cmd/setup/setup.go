package setup

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/copier"
	"github.com/rulekit/rulekit/pkg/ensurer"
	"github.com/rulekit/rulekit/pkg/layout"
	"github.com/rulekit/rulekit/pkg/utils/log"
	"github.com/rulekit/rulekit/pkg/utils/size"
	"github.com/rulekit/rulekit/pkg/validation"
)

func NewCommand(provider config.Provider) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Initialise rules and tasks for Cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.GetLogger(cmd.ErrOrStderr(), log.IsTerminal(cmd.ErrOrStderr()))

			v, err := provider()
			if err != nil {
				return err
			}
			conf, err := config.Load(v)
			if err != nil {
				return err
			}

			return Run(cmd.Context(), conf, cmd.OutOrStdout(), logger)
		},
		SilenceUsage: true,
	}
}

// Run copies the bundled rules and tasks into conf.WorkDir and makes sure the
// task buckets exist. Sources are checked before anything is written. Errors
// name the phase that failed.
func Run(ctx context.Context, conf config.Config, out io.Writer, logger zerolog.Logger) error {
	logger.Info().Msg("Setting up rules and tasks for Cursor")

	paths := layout.Resolve(conf.BundleDir, conf.WorkDir)

	for _, source := range []string{paths.RulesSource, paths.TasksSource} {
		if err := validation.ValidateSource(source); err != nil {
			return errors.Wrap(err, "validating sources")
		}
	}
	for _, dest := range []string{paths.RulesDestination, paths.TasksDestination} {
		if err := validation.ValidateDestination(conf.WorkDir, dest); err != nil {
			return errors.Wrap(err, "validating destinations")
		}
	}

	c := copier.New(conf.Copier, logger)

	logger.Info().Str("source", paths.RulesSource).Str("destination", paths.RulesDestination).Msg("Copying rules")
	result, err := c.CopyDir(ctx, paths.RulesSource, paths.RulesDestination)
	if err != nil {
		return errors.Wrap(err, "copying rules")
	}
	logCopied(logger, result).Str("destination", paths.RulesDestination).Msg("Successfully copied rules")

	logger.Info().Str("source", paths.TasksSource).Str("destination", paths.TasksDestination).Msg("Copying tasks")
	result, err = c.CopyDir(ctx, paths.TasksSource, paths.TasksDestination)
	if err != nil {
		return errors.Wrap(err, "copying tasks")
	}

	// Packaging may have dropped the empty bucket folders.
	created, err := ensurer.New(logger).Ensure(paths.TasksDestination, layout.Buckets)
	if err != nil {
		return errors.Wrap(err, "ensuring task buckets")
	}
	logger.Info().Strs("buckets", layout.Buckets).Strs("created", created).Msg("Ensured task bucket folders")

	logCopied(logger, result).Str("destination", paths.TasksDestination).Msg("Successfully copied tasks")

	_, _ = fmt.Fprintf(out, "Rules are now available in %s%c\n", layout.RulesDir, filepath.Separator)
	_, _ = fmt.Fprintf(out, "Tasks are now available in %s%c\n", layout.TasksDir, filepath.Separator)

	return nil
}

func logCopied(logger zerolog.Logger, result copier.Result) *zerolog.Event {
	return logger.Info().
		Int64("files", result.FilesCopied).
		Str("size", size.FormatBytes(result.BytesCopied)).
		Int("dirsCreated", result.DirsCreated)
}
