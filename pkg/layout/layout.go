// Package layout names the bundled source folders and where they land in the
// working directory.
package layout

import (
	"path/filepath"
)

var (
	// RulesDir is relative to both the bundle and the working directory.
	RulesDir = filepath.Join(".cursor", "rules")
	TasksDir = ".tasks"
)

// Buckets are the task stages that must exist under TasksDir. Packaging may
// drop empty folders, so they are re-created on every setup.
var Buckets = []string{"0-draft", "1-now", "2-next", "3-later", "9-done"}

type Paths struct {
	RulesSource      string
	TasksSource      string
	RulesDestination string
	TasksDestination string
}

func Resolve(bundleDir, workDir string) Paths {
	return Paths{
		RulesSource:      filepath.Join(bundleDir, RulesDir),
		TasksSource:      filepath.Join(bundleDir, TasksDir),
		RulesDestination: filepath.Join(workDir, RulesDir),
		TasksDestination: filepath.Join(workDir, TasksDir),
	}
}
