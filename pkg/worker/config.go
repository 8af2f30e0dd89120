package worker

import (
	"fmt"
)

type Config struct {
	// MaxConcurrentFiles is the number of files copied at the same time.
	MaxConcurrentFiles int
	// BlockSize is the size of each read and write.
	BlockSize int
}

func (c *Config) Validate() error {
	if c.MaxConcurrentFiles <= 0 {
		return fmt.Errorf("MaxConcurrentFiles must be greater than 0")
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("BlockSize must be greater than 0")
	}
	return nil
}
