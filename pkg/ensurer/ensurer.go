// Package ensurer makes sure a fixed set of subdirectories exists under a
// parent directory without touching anything already there.
package ensurer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrNotDirectory = errors.New("exists but is not a directory")

// Failure is one name that could not be ensured.
type Failure struct {
	Name string
	Err  error
}

// Error collects every name that failed in a single Ensure call.
type Error struct {
	Parent   string
	Failures []Failure
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, fmt.Sprintf("%s (%v)", f.Name, f.Err))
	}
	return fmt.Sprintf("failed to ensure %d director%s under %s: %s",
		len(e.Failures), plural(len(e.Failures), "y", "ies"), e.Parent, strings.Join(names, ", "))
}

// Unwrap lets errors.Is see every underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

type Ensurer struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Ensurer {
	return &Ensurer{
		logger: logger.With().Str("component", "ensurer").Logger(),
	}
}

// Ensure creates parent/name for every name that does not exist yet,
// including missing parents. A name that fails does not stop the others; all
// failures are returned together as an *Error.
func (e *Ensurer) Ensure(parent string, names []string) ([]string, error) {
	var created []string
	var failures []Failure

	for _, name := range names {
		path := filepath.Join(parent, name)

		ok, err := e.ensure(path)
		if err != nil {
			e.logger.Error().Str("path", path).Err(err).Msg("Failed to ensure directory")
			failures = append(failures, Failure{Name: name, Err: err})
			continue
		}
		if ok {
			created = append(created, name)
		}
	}

	if len(failures) > 0 {
		return created, &Error{Parent: parent, Failures: failures}
	}

	return created, nil
}

// ensure reports whether path had to be created.
func (e *Ensurer) ensure(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		e.logger.Trace().Str("path", path).Msg("Directory already exists")
		return false, nil
	case err == nil:
		return false, errors.Wrapf(ErrNotDirectory, "%s", path)
	case !os.IsNotExist(err):
		return false, errors.Wrapf(err, "failed to stat %s", path)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, errors.Wrapf(err, "failed to create directory %s", path)
	}
	e.logger.Debug().Str("path", path).Msg("Created directory")

	return true, nil
}

// Missing returns the names that are not present as directories under
// parent. Nothing is created.
func Missing(parent string, names []string) []string {
	var missing []string
	for _, name := range names {
		info, err := os.Stat(filepath.Join(parent, name))
		if err != nil || !info.IsDir() {
			missing = append(missing, name)
		}
	}
	return missing
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
