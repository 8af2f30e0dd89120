package copier

import (
	"github.com/pkg/errors"

	"github.com/rulekit/rulekit/pkg/utils/size"
)

// DefaultBlockSize is also the default of the block-size setting.
const DefaultBlockSize = "256k"

type Config struct {
	MaxConcurrentFiles int
	BlockSize          int
}

// DefaultConfig is used when no configuration is loaded.
var DefaultConfig = Config{
	MaxConcurrentFiles: 8,
	BlockSize:          int(size.MustParse(DefaultBlockSize)),
}

func (c Config) Validate() error {
	if c.MaxConcurrentFiles <= 0 {
		return errors.New("max concurrent files must be greater than 0")
	}
	if c.BlockSize <= 0 {
		return errors.New("block size must be greater than 0")
	}
	return nil
}
