package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT * FROM "leads" WHERE dealership_id = $1`, "SELECT", "leads"},
		{"INSERT INTO `communications` (`id`) VALUES (?)", "INSERT", "communications"},
		{`UPDATE "locations" SET is_default = false`, "UPDATE", "locations"},
		{`DELETE FROM user_locations WHERE user_id = ?`, "DELETE", "user_locations"},
		{`PRAGMA foreign_keys = ON`, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}
