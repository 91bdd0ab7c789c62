package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT 1;":          "SELECT 1",
		"```sql\nSELECT project_id FROM fund_events\n```": "SELECT project_id FROM fund_events",
		"```\nSELECT 1\n```":                              "SELECT 1",
		"  SELECT 1  ":                                    "SELECT 1",
	}

	for in, want := range cases {
		assert.Equal(t, want, sanitizeSQL(in))
	}
}

func TestValidateSQL(t *testing.T) {
	valid := []string{
		"SELECT sum(amount) FROM fund_events WHERE token_symbol = 'FLOW'",
		"SELECT count() FROM toucans.fund_events",
		"SELECT project_id, count() FROM proposal_events GROUP BY project_id",
	}
	for _, q := range valid {
		assert.NoError(t, validateSQL(q), q)
	}

	invalid := []string{
		"",
		"DROP TABLE fund_events",
		"SELECT 1; SELECT 2",
		"INSERT INTO fund_events VALUES (1)",
		"SELECT * FROM system.tables",
		"SELECT sum(amount) FROM fund_events WHERE 1=1; DELETE FROM fund_events",
	}
	for _, q := range invalid {
		assert.Error(t, validateSQL(q), q)
	}
}
