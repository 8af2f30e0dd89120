package lister

import (
	"github.com/pkg/errors"

	"github.com/rulekit/rulekit/pkg/validation"
)

type Config struct {
	SourcePath      string
	DestinationPath string
	// DoNotCreateDirs lists files without touching the destination, for
	// verification.
	DoNotCreateDirs bool
}

// Validate checks the configuration for the lister. It must pass before
// Start is called.
func (c Config) Validate() error {
	if c.DestinationPath == "" {
		return errors.New("destination path is required")
	}

	return validation.ValidateSource(c.SourcePath)
}
