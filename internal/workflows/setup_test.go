package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupConfiguresGlobalFilters(t *testing.T) {
	f := newFixture(t)
	r := &fakeRunner{}

	result, err := Setup(context.Background(), f.session(t), SetupOptions{Runner: r, Executable: "/usr/bin/arcane"})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/arcane", result.Executable)
	assert.Equal(t, []string{
		"filter.git-arcane.clean",
		"filter.git-arcane.smudge",
		"filter.git-arcane.required",
		"filter.git-seal.clean",
		"filter.git-seal.smudge",
		"filter.git-seal.required",
	}, result.Keys)

	require.Len(t, r.calls, 6)
	assert.Equal(t, []string{"config", "--global", "filter.git-arcane.clean", "'/usr/bin/arcane' clean %f"}, r.calls[0].args)
}
