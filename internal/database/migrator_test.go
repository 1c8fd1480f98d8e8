package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/database"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := database.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "001_initial_schema.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
