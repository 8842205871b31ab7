package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	a, b := Generate(), Generate()
	if a == b {
		t.Fatalf("Generate() returned %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("Generate() = %q, not a uuid: %v", a, err)
	}
	if got := len(GenerateShort()); got != 8 {
		t.Errorf("len(GenerateShort()) = %d, want 8", got)
	}
}

func TestSequence(t *testing.T) {
	s := &Sequence{Prefix: "link"}
	for _, want := range []string{"link-1", "link-2", "link-3"} {
		if got := s.Generate(); got != want {
			t.Errorf("Generate() = %s, want %s", got, want)
		}
	}
}

func TestOr(t *testing.T) {
	if _, err := uuid.Parse(Or(nil).Generate()); err != nil {
		t.Errorf("Or(nil) should fall back to UUID: %v", err)
	}
	s := &Sequence{}
	if Or(s) != Generator(s) {
		t.Error("Or(s) should return s")
	}
}
