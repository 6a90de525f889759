package repository

import (
	"strings"
	"testing"
)

func TestTableColumns_Select(t *testing.T) {
	tc := TableColumns{
		TableName: "generations",
		Columns:   []string{"id", "user_id", "tone"},
	}

	if got, want := tc.Select(), "id, user_id, tone"; got != want {
		t.Errorf("Select() = %q, want %q", got, want)
	}
	if tc.InsertColumns() != tc.Select() {
		t.Error("InsertColumns() should match Select()")
	}
}

func TestTableColumns_Placeholders(t *testing.T) {
	tc := TableColumns{Columns: []string{"a", "b", "c", "d"}}

	if got, want := tc.Placeholders(), "$1, $2, $3, $4"; got != want {
		t.Errorf("Placeholders() = %q, want %q", got, want)
	}
	if got, want := tc.QuestionMarks(), "?, ?, ?, ?"; got != want {
		t.Errorf("QuestionMarks() = %q, want %q", got, want)
	}
	if got := (TableColumns{}).QuestionMarks(); got != "" {
		t.Errorf("QuestionMarks() on empty = %q", got)
	}
}

func TestGenerationColumns(t *testing.T) {
	if GenerationColumns.TableName != "generations" {
		t.Errorf("TableName = %q", GenerationColumns.TableName)
	}
	if GenerationColumns.Columns[0] != "id" {
		t.Errorf("first column = %q, want id", GenerationColumns.Columns[0])
	}

	seen := make(map[string]bool)
	for _, col := range GenerationColumns.Columns {
		if seen[col] {
			t.Errorf("duplicate column %q", col)
		}
		seen[col] = true
		if strings.TrimSpace(col) != col || strings.Contains(col, " ") {
			t.Errorf("column %q contains whitespace", col)
		}
	}
	for _, required := range []string{"user_id", "input_data", "generated_content", "created_at", "updated_at"} {
		if !seen[required] {
			t.Errorf("missing column %q", required)
		}
	}
}
