package layout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	bundle := filepath.Join("opt", "rulekit")
	work := filepath.Join("home", "me", "project")

	p := Resolve(bundle, work)

	assert.Equal(t, filepath.Join(bundle, ".cursor", "rules"), p.RulesSource)
	assert.Equal(t, filepath.Join(bundle, ".tasks"), p.TasksSource)
	assert.Equal(t, filepath.Join(work, ".cursor", "rules"), p.RulesDestination)
	assert.Equal(t, filepath.Join(work, ".tasks"), p.TasksDestination)
}

func TestBuckets(t *testing.T) {
	assert.ElementsMatch(t, []string{"0-draft", "1-now", "2-next", "3-later", "9-done"}, Buckets)
}
