// Package config resolves the settings of a single run: where the bundled
// folders live, where they are copied to and how the copy is tuned.
//
// Values come, in order of precedence, from RULEKIT_* environment variables,
// an optional config file, and built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/rulekit/rulekit/pkg/copier"
	"github.com/rulekit/rulekit/pkg/utils/size"
)

const EnvPrefix = "RULEKIT"

// Keys understood in config files and, upper-cased with "-" replaced by "_"
// and prefixed with RULEKIT_, in the environment.
const (
	KeyBundleDir       = "bundle-dir"
	KeyConcurrentFiles = "concurrent-files"
	KeyBlockSize       = "block-size"
)

// Config is computed once per run and not modified afterwards.
type Config struct {
	// BundleDir contains the bundled .cursor/rules and .tasks folders.
	BundleDir string
	// WorkDir receives the copies.
	WorkDir string

	Copier copier.Config
}

// New returns a viper instance with defaults and environment binding set up.
// configFile may be empty.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyConcurrentFiles, copier.DefaultConfig.MaxConcurrentFiles)
	v.SetDefault(KeyBlockSize, copier.DefaultBlockSize)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	return v, nil
}

// Load resolves the configuration for this run.
func Load(v *viper.Viper) (Config, error) {
	bundleDir := v.GetString(KeyBundleDir)
	if bundleDir == "" {
		var err error
		bundleDir, err = InstallDir()
		if err != nil {
			return Config{}, err
		}
	}

	bundleDir, err := filepath.Abs(bundleDir)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to resolve bundle directory %s", bundleDir)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to get working directory")
	}

	blockSize, err := size.Parse(v.GetString(KeyBlockSize))
	if err != nil {
		return Config{}, errors.Wrapf(err, "invalid %s", KeyBlockSize)
	}

	conf := Config{
		BundleDir: bundleDir,
		WorkDir:   workDir,
		Copier: copier.Config{
			MaxConcurrentFiles: v.GetInt(KeyConcurrentFiles),
			BlockSize:          int(blockSize),
		},
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

func (c Config) Validate() error {
	if c.BundleDir == "" {
		return errors.New("bundle directory is required")
	}
	if c.WorkDir == "" {
		return errors.New("working directory is required")
	}
	return c.Copier.Validate()
}

// InstallDir returns the directory of the running executable, with symlinks
// resolved so a binary linked into a bin folder still finds its bundle.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "failed to locate executable")
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve executable path")
	}

	return filepath.Dir(exe), nil
}

// Provider builds the viper instance for a command once its flags have been
// parsed.
type Provider func() (*viper.Viper, error)
