package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if c.Len() < 10 {
		t.Fatalf("builtin catalog has %d entries", c.Len())
	}
	egg, ok := c.Entries()["jajko"]
	if !ok || egg.Kcal != 155 || egg.Unit != "100g" {
		t.Errorf("jajko = %+v, %v", egg, ok)
	}
}

func TestParse_NormalisesKeys(t *testing.T) {
	c, err := Parse([]byte("\"  Egg \": {kcal: 155, unit: 100g}\nMILK: {kcal: 61, unit: 100ml}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := c.Entries()
	if _, ok := e["egg"]; !ok {
		t.Errorf("expected key egg, got %v", e)
	}
	if _, ok := e["milk"]; !ok {
		t.Errorf("expected key milk, got %v", e)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("egg: [not, a, mapping")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("egg: {kcal: -1, unit: 100g}")); err == nil {
		t.Error("expected negative kcal error")
	}
}

func TestEntriesIsCopy(t *testing.T) {
	c := FromMap(nil)
	e := c.Entries()
	e["x"] = e["y"]
	if c.Len() != 0 {
		t.Error("mutating Entries() result changed the catalog")
	}
}

func TestLoad_FileOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ingredients.yaml")
	if err := os.WriteFile(p, []byte("tofu: {kcal: 76, unit: 100g}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
