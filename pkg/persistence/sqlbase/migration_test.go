package sqlbase_test

import (
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence/sqlbase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortMigrations(t *testing.T) {
	t.Parallel()

	sorted, err := sqlbase.SortMigrations([]sqlbase.Migration{
		{Version: 3, Name: "integrations"},
		{Version: 1, Name: "workflows"},
		{Version: 2, Name: "execution logs"},
	})
	require.NoError(t, err)

	names := make([]string, 0, len(sorted))
	for _, migration := range sorted {
		names = append(names, migration.Name)
	}

	assert.Equal(t, []string{"workflows", "execution logs", "integrations"}, names)
}

func TestSortMigrations_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string][]sqlbase.Migration{
		"duplicate version": {{Version: 1, Name: "a"}, {Version: 1, Name: "b"}},
		"zero version":      {{Version: 0, Name: "a"}},
		"negative version":  {{Version: -2, Name: "a"}},
	}

	for name, migrations := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := sqlbase.SortMigrations(migrations)
			require.ErrorIs(t, err, sqlbase.ErrInvalidMigrations)
		})
	}
}
