package domain

import (
	"context"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/wire"
)

const (
	// ScopeConfiguration is the document scope of configurations.
	ScopeConfiguration = "Configuration"

	// DefaultExtension is the format of configurations that do not declare one.
	DefaultExtension = "yaml"
)

// ConfigurationData is the normalized form of a Configuration.
type ConfigurationData struct {
	model.BaseData
	Code      *string `json:"code,omitempty"`
	Extension *string `json:"extension,omitempty"`
}

// Configuration is a text document, YAML unless its extension says otherwise.
type Configuration struct {
	model.Base
	code      string
	extension string
}

func NewConfiguration(env model.Env) *Configuration {
	c := &Configuration{extension: DefaultExtension}
	c.Init(env, c, "code", "extension")
	return c
}

// ConfigurationOfJSON builds a clean configuration from its wire document.
func ConfigurationOfJSON(env model.Env, obj *wire.Object) *Configuration {
	c := NewConfiguration(env)
	c.Load(func() { c.SetData(ConfigurationFromDB(obj)) })
	return c
}

func (c *Configuration) Scope() string { return ScopeConfiguration }
func (c *Configuration) URL() string   { return c.URLFor(ScopeConfiguration) }

func (c *Configuration) Code() string { return c.code }

func (c *Configuration) SetCode(v string) {
	c.code = v
	c.Changed("code", v)
}

func (c *Configuration) Extension() string { return c.extension }

func (c *Configuration) SetExtension(v string) {
	c.extension = v
	c.Changed("extension", v)
}

func (c *Configuration) SetData(d ConfigurationData) []string {
	applied := c.SetBaseData(d.BaseData)
	if d.Code != nil {
		c.SetCode(*d.Code)
		applied = append(applied, "code")
	}
	if d.Extension != nil {
		c.SetExtension(*d.Extension)
		applied = append(applied, "extension")
	}
	return applied
}

func (c *Configuration) Serialize() ConfigurationData {
	return ConfigurationData{
		BaseData:  c.Snapshot(),
		Code:      model.Ptr(c.code),
		Extension: model.Ptr(c.extension),
	}
}

func (c *Configuration) Normalized() any { return c.Serialize() }

func (c *Configuration) SerializeToDB() *wire.Object {
	return wire.NewObject().
		Set("Label", c.Name()).
		Set("Yaml", c.code).
		Set("Type", c.extension).
		Set("LastUpdate", detailsToDB(c.Details()))
}

func (c *Configuration) Validate(ctx context.Context) model.ValidationResult {
	return c.ValidateWith(ctx, ScopeConfiguration, c.SerializeToDB())
}

// ConfigurationFromDB reads a configuration wire document. Type defaults to yaml.
func ConfigurationFromDB(obj *wire.Object) ConfigurationData {
	return ConfigurationData{
		BaseData:  headerFromDB(obj),
		Code:      optString(obj, "Yaml"),
		Extension: stringOr(optString(obj, "Type"), DefaultExtension),
	}
}
