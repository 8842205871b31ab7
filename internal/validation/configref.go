package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const configRefPrefix = "$(config "

var configRefPattern = regexp.MustCompile(`^\$\(config \w+(\.\w+)*\)$`)

// ConfigRef is a parameter value of the form $(config name.key.key).
type ConfigRef struct {
	Name string
	Path []string
}

// ParseConfigRef reads a configuration reference.
func ParseConfigRef(s string) (ConfigRef, error) {
	if !configRefPattern.MatchString(s) {
		return ConfigRef{}, fmt.Errorf("%q: %w", s, ErrInvalidConfigRef)
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, configRefPrefix), ")"), ".")
	return ConfigRef{Name: parts[0], Path: parts[1:]}, nil
}

func (v *Validator) checkConfigRef(ctx context.Context, s string) error {
	ref, err := ParseConfigRef(s)
	if err != nil || v.configs == nil {
		return err
	}
	code, err := v.configs(ctx, ref.Name)
	if err != nil {
		return fmt.Errorf("%q: %w: %v", s, ErrInvalidConfigRef, err)
	}
	var val any
	if err := yaml.Unmarshal([]byte(code), &val); err != nil {
		return fmt.Errorf("%q: %w: configuration %s: %v", s, ErrInvalidConfigRef, ref.Name, err)
	}
	for _, key := range ref.Path {
		m, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("%q: %w: no key %s", s, ErrInvalidConfigRef, key)
		}
		if val, ok = m[key]; !ok {
			return fmt.Errorf("%q: %w: no key %s", s, ErrInvalidConfigRef, key)
		}
	}
	return nil
}
