package bytecode

import (
	"path/filepath"
	"testing"

	"github.com/zopsicle/snowflake-sub000/internal/value"
)

func sampleUnit(t *testing.T) *Unit {
	t.Helper()
	v := mustVerify(t, Procedure{
		MaxRegister: 0,
		Instructions: []Instruction{
			{Op: OpCopyConstant, A: 0, Constant: 0},
			{Op: OpReturn, A: 0},
		},
		Constants: []value.Value{value.MustInt60(9)},
	})
	return &Unit{
		Filepath:              "sample.bc",
		InstructionSetVersion: CurrentInstructionSetVersion,
		Procedures:            []*Verified{v},
	}
}

func TestSaveAndLoadUnitFileRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.bc")

	original := sampleUnit(t)
	if err := SaveUnitFile(path, original); err != nil {
		t.Fatalf("SaveUnitFile: %v", err)
	}

	loaded, err := LoadUnitFile(path)
	if err != nil {
		t.Fatalf("LoadUnitFile: %v", err)
	}

	if loaded.Filepath != original.Filepath {
		t.Errorf("Filepath = %q, want %q", loaded.Filepath, original.Filepath)
	}
	if len(loaded.Procedures) != 1 {
		t.Fatalf("Procedures count = %d, want 1", len(loaded.Procedures))
	}

	delta := Interpret(newRegisters(1), loaded.Procedures[0])
	if delta.Kind != DeltaReturn || delta.Value.Int60() != 9 {
		t.Fatalf("reloaded procedure evaluated to %+v, want return 9", delta)
	}
}

func TestLoadUnitFileRejectsIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.bc")

	unit := sampleUnit(t)
	unit.InstructionSetVersion = "99.0.0"
	if err := SaveUnitFile(path, unit); err != nil {
		t.Fatalf("SaveUnitFile: %v", err)
	}

	if _, err := LoadUnitFile(path); err == nil {
		t.Fatal("LoadUnitFile accepted a unit from an incompatible major version")
	}
}

func TestLoadUnitFileMissingFile(t *testing.T) {
	if _, err := LoadUnitFile("/nonexistent/path/unit.bc"); err == nil {
		t.Fatal("LoadUnitFile should fail for a missing file")
	}
}
