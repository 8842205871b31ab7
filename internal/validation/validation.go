// Package validation checks wire documents before they are saved.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

var (
	ErrMissingLabel     = errors.New("label is required")
	ErrInvalidLabel     = errors.New("label contains a path separator")
	ErrInvalidYAML      = errors.New("invalid yaml")
	ErrInvalidLink      = errors.New("invalid link")
	ErrInvalidConfigRef = errors.New("invalid configuration reference")
)

// ConfigLookup returns the source of a stored configuration.
type ConfigLookup func(ctx context.Context, name string) (string, error)

// Validator applies the rules registered for a document scope. Scopes with
// no rules validate.
type Validator struct {
	rules   map[string][]rule
	configs ConfigLookup
}

type rule func(ctx context.Context, doc *wire.Object) error

type Option func(*Validator)

// WithConfigLookup resolves $(config name.key) references in parameter
// values against stored configurations. Without it only the syntax of
// references is checked.
func WithConfigLookup(fn ConfigLookup) Option {
	return func(v *Validator) { v.configs = fn }
}

func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	v.rules = map[string][]rule{
		domain.ScopeFlow:          {validateLabel, validateLinks, v.validateParameters},
		domain.ScopeNode:          {validateLabel, v.validateParameters},
		domain.ScopeCallback:      {validateLabel},
		domain.ScopeConfiguration: {validateLabel, validateConfigurationCode},
	}
	return v
}

var _ model.Validator = (*Validator)(nil)

// Validate runs every rule of schema and reports all failures together.
func (v *Validator) Validate(ctx context.Context, schema string, data any) model.ValidationResult {
	doc, ok := wire.AsObject(data)
	if !ok {
		return model.Invalid(fmt.Sprintf("%s: document is not an object", schema))
	}
	var msgs []string
	for _, r := range v.rules[schema] {
		if err := r(ctx, doc); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return model.Invalid(strings.Join(msgs, "; "))
	}
	return model.Valid()
}

func validateLabel(_ context.Context, doc *wire.Object) error {
	label, _ := wire.String(doc.Value("Label"))
	if strings.TrimSpace(label) == "" {
		return ErrMissingLabel
	}
	if strings.Contains(label, "/") {
		return fmt.Errorf("%q: %w", label, ErrInvalidLabel)
	}
	return nil
}

func validateConfigurationCode(_ context.Context, doc *wire.Object) error {
	typ, _ := wire.String(doc.Value("Type"))
	if typ != "" && typ != domain.DefaultExtension {
		return nil
	}
	code, _ := wire.String(doc.Value("Yaml"))
	var out any
	if err := yaml.Unmarshal([]byte(code), &out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func validateLinks(_ context.Context, doc *wire.Object) error {
	links, ok := wire.AsObject(doc.Value("Links"))
	if !ok {
		return nil
	}
	var errs []error
	links.Range(func(id string, v any) bool {
		link, _ := wire.AsObject(v)
		from, _ := wire.String(link.Value("From"))
		to, _ := wire.String(link.Value("To"))
		switch {
		case from == "" || to == "":
			errs = append(errs, fmt.Errorf("%w %s: both ends are required", ErrInvalidLink, id))
		case from == to:
			errs = append(errs, fmt.Errorf("%w %s: links %s to itself", ErrInvalidLink, id, from))
		}
		return true
	})
	return errors.Join(errs...)
}

// validateParameters checks every configuration reference in the document
// and, for flows, in the parameters of node instances and sub-flows.
func (v *Validator) validateParameters(ctx context.Context, doc *wire.Object) error {
	var errs []error
	check := func(params any) {
		obj, ok := wire.AsObject(params)
		if !ok {
			return
		}
		obj.Range(func(name string, p any) bool {
			param, _ := wire.AsObject(p)
			value, ok := wire.String(param.Value("Value"))
			if !ok || !strings.HasPrefix(value, configRefPrefix) {
				return true
			}
			if err := v.checkConfigRef(ctx, value); err != nil {
				errs = append(errs, fmt.Errorf("parameter %s: %w", name, err))
			}
			return true
		})
	}
	check(doc.Value("Parameter"))
	for _, section := range []string{"NodeInst", "Container"} {
		children, _ := wire.AsObject(doc.Value(section))
		children.Range(func(_ string, c any) bool {
			child, _ := wire.AsObject(c)
			check(child.Value("Parameter"))
			return true
		})
	}
	return errors.Join(errs...)
}
