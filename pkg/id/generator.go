package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// GeneratorFunc adapts a function to a Generator.
type GeneratorFunc func() string

func (f GeneratorFunc) Generate() string { return f() }

// UUID is the default generator used for link ids.
var UUID Generator = GeneratorFunc(Generate)

// Generate generates a new unique ID.
func Generate() string {
	return uuid.New().String()
}

// GenerateShort generates a shorter unique ID (first 8 chars of UUID).
func GenerateShort() string {
	return uuid.New().String()[:8]
}

// Sequence yields prefix-1, prefix-2, ... and is meant for deterministic tests.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n)
}

// Or returns g, or UUID when g is nil.
func Or(g Generator) Generator {
	if g == nil {
		return UUID
	}
	return g
}
