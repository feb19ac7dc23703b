package scripts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/loggingtest"
	"github.com/jward/pyinfer/internal/runtime"
	"github.com/jward/pyinfer/scripts"
)

const checkSource = `import os
DEBUG = False
NAMES = ['a']
NAMES.append('b')
if os.environ:
    mode = 'dev'
else:
    mode = os.environ['MODE']
`

// runCheck runs the named check over a project holding checkSource as
// module "settings" and returns its reports.
func runCheck(t *testing.T, name string) []map[string]any {
	t.Helper()
	log := loggingtest.NewTestLogger(t).Logger
	p := pyinfer.New(pyinfer.WithLogger(log))
	_, err := p.Parse([]byte(checkSource), "settings")
	require.NoError(t, err)

	rt := runtime.NewRuntime(p, "", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(log))
	require.NoError(t, rt.RunScript(context.Background(), scripts.Path(name), nil))
	return rt.Reports()
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"constants", "rebound", "uninferable"}, scripts.Names())
	for _, name := range scripts.Names() {
		assert.True(t, scripts.Has(name), name)
	}
	assert.False(t, scripts.Has("missing"))
}

func TestConstants(t *testing.T) {
	reports := runCheck(t, "constants")
	require.Len(t, reports, 2)
	assert.Equal(t, "DEBUG", reports[0]["name"])
	assert.Equal(t, "False", reports[0]["value"])
	assert.Equal(t, "NAMES", reports[1]["name"])
	assert.Equal(t, "['a', 'b']", reports[1]["value"])
	assert.Equal(t, int64(3), reports[1]["line"])
}

func TestUninferable(t *testing.T) {
	reports := runCheck(t, "uninferable")
	names := make([]any, 0, len(reports))
	for _, r := range reports {
		names = append(names, r["name"])
	}
	assert.Equal(t, []any{"os", "mode"}, names)
}

func TestRebound(t *testing.T) {
	reports := runCheck(t, "rebound")
	require.Len(t, reports, 2)
	assert.Equal(t, "NAMES", reports[0]["name"])
	assert.Equal(t, []any{"assign", "augassign"}, reports[0]["kinds"])
	assert.Equal(t, "mode", reports[1]["name"])
	assert.Equal(t, []any{"assign", "assign"}, reports[1]["kinds"])
}
