package database

import (
	"testing"
	"testing/fstest"
)

func TestPending_Embedded(t *testing.T) {
	migs, err := Pending(Migrations, MigrationsDir)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(migs) < 1 || migs[0].Version != 1 || migs[0].Filename != "001_create_generations.up.sql" {
		t.Errorf("migrations = %+v", migs)
	}
	for i := 1; i < len(migs); i++ {
		if migs[i].Version <= migs[i-1].Version {
			t.Errorf("migrations out of order: %+v", migs)
		}
	}
}

func TestPending_SkipsInvalid(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_ten.up.sql":   {Data: []byte("SELECT 10")},
		"m/002_two.up.sql":   {Data: []byte("SELECT 2")},
		"m/002_two.down.sql": {Data: []byte("SELECT 0")},
		"m/readme.up.sql":    {Data: []byte("")},
		"m/notes.txt":        {Data: []byte("")},
		"m/sub/003_x.up.sql": {Data: []byte("")},
	}
	migs, err := Pending(fsys, "m")
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(migs) != 2 || migs[0].Version != 2 || migs[1].Version != 10 {
		t.Errorf("migrations = %+v", migs)
	}
}

func TestPending_MissingDir(t *testing.T) {
	if _, err := Pending(fstest.MapFS{}, "nope"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestExtractVersion(t *testing.T) {
	tests := map[string]int{
		"001_initial.up.sql": 1,
		"42_x.up.sql":        42,
		"initial.up.sql":     0,
		"abc_initial.up.sql": 0,
	}
	for name, want := range tests {
		if got := extractVersion(name); got != want {
			t.Errorf("extractVersion(%q) = %d, expected %d", name, got, want)
		}
	}
}
