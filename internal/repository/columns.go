package repository

import (
	"strconv"
	"strings"
)

// GenerationColumns defines the columns for the generations table, in scan order.
var GenerationColumns = TableColumns{
	TableName: "generations",
	Columns: []string{
		"id",
		"user_id",
		"content_type",
		"tone",
		"word_limit",
		"input_data",
		"generated_content",
		"created_at",
		"updated_at",
	},
}

// TableColumns provides helper methods for generating SQL fragments.
type TableColumns struct {
	TableName string
	Columns   []string
}

// Select returns a comma-separated list of columns for SELECT queries.
// Example: "id, user_id, content_type"
func (tc TableColumns) Select() string {
	return strings.Join(tc.Columns, ", ")
}

// InsertColumns returns a comma-separated list of columns for INSERT queries.
func (tc TableColumns) InsertColumns() string {
	return tc.Select()
}

// Placeholders returns numbered Postgres placeholders for the columns.
// Example: "$1, $2, $3" for 3 columns
func (tc TableColumns) Placeholders() string {
	placeholders := make([]string, tc.Count())
	for i := range placeholders {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(placeholders, ", ")
}

// QuestionMarks returns positional SQLite placeholders for the columns.
// Example: "?, ?, ?" for 3 columns
func (tc TableColumns) QuestionMarks() string {
	if tc.Count() == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", tc.Count()), ", ")
}

// Count returns the number of columns.
func (tc TableColumns) Count() int {
	return len(tc.Columns)
}
