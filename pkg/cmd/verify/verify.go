package verify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/copier"
	"github.com/rulekit/rulekit/pkg/ensurer"
	"github.com/rulekit/rulekit/pkg/hasher"
	"github.com/rulekit/rulekit/pkg/layout"
	"github.com/rulekit/rulekit/pkg/lister"
	"github.com/rulekit/rulekit/pkg/utils/log"
	"github.com/rulekit/rulekit/pkg/utils/size"
	"github.com/rulekit/rulekit/pkg/validation"
)

var ErrBucketsMissing = errors.New("task buckets are missing")

// Options are the settings only verify has. Concurrency and block size come
// from config.Config, shared with setup.
type Options struct {
	TransferRateLimit string
	FileRateLimit     string
}

func NewCommand(provider config.Provider) *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the working directory matches the bundled rules and tasks",
		Long: `
Hashes every bundled rules and tasks file together with its copy in the
working directory and reports copies that are missing or differ. Files that
only exist in the working directory are ignored. Also checks that every task
bucket exists.

--concurrent-files and --block-size override RULEKIT_CONCURRENT_FILES,
RULEKIT_BLOCK_SIZE and the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.GetLogger(cmd.ErrOrStderr(), log.IsTerminal(cmd.ErrOrStderr()))

			v, err := provider()
			if err != nil {
				return err
			}
			for _, key := range []string{config.KeyConcurrentFiles, config.KeyBlockSize} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
					return errors.Wrapf(err, "failed to bind flag %s", key)
				}
			}
			conf, err := config.Load(v)
			if err != nil {
				return err
			}

			return Run(cmd.Context(), conf, opts, logger)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.IntP(config.KeyConcurrentFiles, "c", copier.DefaultConfig.MaxConcurrentFiles, "Maximum number of files hashed concurrently")
	f.String(config.KeyBlockSize, copier.DefaultBlockSize, "Read block size (e.g., 32k, 1m)")
	f.StringVar(&opts.TransferRateLimit, "transfer-rate-limit", "", "Limit bytes hashed per second (e.g., 1m, 500k), including both source and destination files")
	f.StringVar(&opts.FileRateLimit, "file-rate-limit", "", "Limit files compared per second (e.g., 10, 1k)")

	return cmd
}

// Run compares the bundled folders with their copies in conf.WorkDir.
func Run(ctx context.Context, conf config.Config, opts Options, logger zerolog.Logger) error {
	transferRateLimit, err := size.Parse(opts.TransferRateLimit)
	if err != nil {
		return errors.Wrap(err, "invalid transfer rate limit")
	}
	fileRateLimit, err := size.Parse(opts.FileRateLimit)
	if err != nil {
		return errors.Wrap(err, "invalid file rate limit")
	}

	hasherConfig := hasher.Config{
		ConcurrentFiles: conf.Copier.MaxConcurrentFiles,
		BlockSize:       conf.Copier.BlockSize,
	}
	if err := hasherConfig.Validate(); err != nil {
		return err
	}

	paths := layout.Resolve(conf.BundleDir, conf.WorkDir)
	trees := []lister.Config{
		{SourcePath: paths.RulesSource, DestinationPath: paths.RulesDestination, DoNotCreateDirs: true},
		{SourcePath: paths.TasksSource, DestinationPath: paths.TasksDestination, DoNotCreateDirs: true},
	}
	for _, tree := range trees {
		if err := validation.ValidateSource(tree.SourcePath); err != nil {
			return errors.Wrap(err, "validating sources")
		}
	}

	var transferRateLimiter, fileRateLimiter *rate.Limiter
	if transferRateLimit > 0 {
		// Every goroutine reads one block at a time.
		transferRateLimiter = rate.NewLimiter(rate.Limit(transferRateLimit), hasherConfig.BlockSize*hasherConfig.ConcurrentFiles)
	}
	if fileRateLimit > 0 {
		fileRateLimiter = rate.NewLimiter(rate.Limit(fileRateLimit), hasherConfig.ConcurrentFiles)
	}

	eg, ctx := errgroup.WithContext(ctx)

	files := make(chan lister.File, 4096)
	eg.Go(func() error {
		defer close(files)
		for _, tree := range trees {
			if err := lister.New(tree, logger).Start(ctx, files); err != nil {
				return errors.Wrapf(err, "failed to walk source %s", tree.SourcePath)
			}
		}
		return nil
	})

	h := hasher.New(hasherConfig, logger)
	eg.Go(func() error {
		return h.Start(ctx, files, transferRateLimiter, fileRateLimiter)
	})

	hashErr := eg.Wait()

	missing := ensurer.Missing(paths.TasksDestination, layout.Buckets)
	if len(missing) > 0 {
		logger.Warn().Str("path", paths.TasksDestination).Strs("missing", missing).Msg("Task buckets are missing")
	}

	if hashErr != nil {
		return hashErr
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrBucketsMissing, "%v", missing)
	}

	stats := h.Stats()
	logger.Info().
		Int64("filesHashed", stats.FilesHashed).
		Str("bytesHashed", size.FormatBytes(stats.BytesHashed)).
		Msg("Working directory matches the bundled rules and tasks")

	return nil
}
