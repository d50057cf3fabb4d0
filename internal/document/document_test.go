package document

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddAndRemoveObject(t *testing.T) {
	doc := New("Test")

	obj := Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 10}}
	if err := doc.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := doc.AddObject(obj); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := doc.AddObject(Object{}); err == nil {
		t.Error("empty name accepted")
	}

	removed, err := doc.RemoveObject("Box")
	if err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if removed.Params["length"] != 10 {
		t.Errorf("removed state lost parameters: %v", removed.Params)
	}
	if _, err := doc.RemoveObject("Box"); err == nil {
		t.Error("removing a missing object succeeded")
	}
}

func TestSetParamsReturnsPrevious(t *testing.T) {
	doc := New("Test")
	if err := doc.AddObject(Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 10}}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	prev, err := doc.SetParams("Box", map[string]float64{"length": 99})
	if err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	if prev["length"] != 10 {
		t.Errorf("previous length = %v, want 10", prev["length"])
	}

	obj, _ := doc.Object("Box")
	if obj.Params["length"] != 99 {
		t.Errorf("length = %v, want 99", obj.Params["length"])
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	doc := New("Test")
	if err := doc.AddObject(Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 10}}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	snap := doc.Snapshot()
	if _, err := doc.RemoveObject("Box"); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}

	if !snap.HasObject("Box") {
		t.Error("snapshot lost an object after document mutation")
	}
	if snap.ObjectCount() != 1 {
		t.Errorf("snapshot count = %d, want 1", snap.ObjectCount())
	}

	// Mutating the returned slice must not leak into the snapshot.
	objs := snap.Objects()
	objs[0].Name = "Tampered"
	if !snap.HasObject("Box") {
		t.Error("snapshot affected by caller mutation")
	}
}

func TestObjectReturnsCopy(t *testing.T) {
	doc := New("Test")
	if err := doc.AddObject(Object{Name: "Box", Type: "box", Params: map[string]float64{"length": 10}}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	obj, _ := doc.Object("Box")
	obj.Params["length"] = 777

	fresh, _ := doc.Object("Box")
	if fresh.Params["length"] != 10 {
		t.Errorf("document mutated through a returned copy: %v", fresh.Params["length"])
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := `
name: Bracket
objects:
  - name: Base
    type: box
    params:
      length: 50
      width: 30
      height: 5
  - name: Hole
    type: cylinder
    params:
      radius: 4
      height: 5
`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("writing seed: %v", err)
	}

	doc, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if doc.Name() != "Bracket" {
		t.Errorf("name = %q, want Bracket", doc.Name())
	}
	if doc.ObjectCount() != 2 {
		t.Errorf("objects = %d, want 2", doc.ObjectCount())
	}
	base, ok := doc.Object("Base")
	if !ok || base.Params["length"] != 50 {
		t.Errorf("Base = %+v, want length 50", base)
	}
}

func TestLoadSeedMissingFile(t *testing.T) {
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
