package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create_accounts.sql", "0002_create_audit_log.sql"}, names)
}

func TestEmbeddedSchema(t *testing.T) {
	content, err := files.ReadFile("sql/0001_create_accounts.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "uk_accounts_email")
	assert.Contains(t, string(content), "account_status_enum")
}
