package storage

import (
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveAndLoad(t *testing.T) {
	store, err := NewJSONStore(t.TempDir(), "sample.json")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	in := sample{Name: "snapshot", Count: 3}
	if err := store.Save(&in); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out sample
	if err := store.Load(&out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out != in {
		t.Errorf("loaded %+v, want %+v", out, in)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store, err := NewJSONStore(t.TempDir(), "absent.json")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	var out sample
	if err := store.Load(&out); err != nil {
		t.Errorf("missing file should load empty, got %v", err)
	}
	if out != (sample{}) {
		t.Errorf("loaded %+v from nothing", out)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store, err := NewJSONStore(t.TempDir(), "sample.json")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	store.Save(&sample{Name: "first", Count: 1})
	store.Save(&sample{Name: "second", Count: 2})

	var out sample
	if err := store.Load(&out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Name != "second" || out.Count != 2 {
		t.Errorf("loaded %+v, want the second snapshot", out)
	}
}
