package domain

import (
	"context"
	"fmt"
	"sort"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/internal/wire"
)

// Document is a top-level entity stored under workspace/scope/name.
type Document interface {
	Scope() string
	URL() string
	ID() string
	Name() string
	SetName(string)
	Workspace() string
	SetWorkspace(string)
	Details() model.Details
	SetDetails(model.Details)

	IsNew() bool
	SetIsNew(bool)
	IsLoaded() bool
	SetIsLoaded(bool)
	IsDirty() bool
	SetDirty(bool)

	// Normalized returns the document's XxxData.
	Normalized() any
	SerializeToDB() *wire.Object
	Validate(ctx context.Context) model.ValidationResult

	Subscribe(observable.Callback) observable.SubscriptionID
	Unsubscribe(observable.SubscriptionID) bool
	Destroy()
}

type documentType struct {
	open   func(env model.Env, obj *wire.Object) Document
	create func(env model.Env) Document
	decode func(obj *wire.Object) any
}

var documentTypes = map[string]documentType{
	ScopeFlow: {
		open:   func(env model.Env, obj *wire.Object) Document { return FlowOfJSON(env, obj) },
		create: func(env model.Env) Document { return NewFlow(env) },
		decode: func(obj *wire.Object) any { return FlowFromDB(obj) },
	},
	ScopeNode: {
		open:   func(env model.Env, obj *wire.Object) Document { return NodeOfJSON(env, obj) },
		create: func(env model.Env) Document { return NewNode(env) },
		decode: func(obj *wire.Object) any { return NodeFromDB(obj) },
	},
	ScopeCallback: {
		open:   func(env model.Env, obj *wire.Object) Document { return CallbackOfJSON(env, obj) },
		create: func(env model.Env) Document { return NewCallback(env) },
		decode: func(obj *wire.Object) any { return CallbackFromDB(obj) },
	},
	ScopeConfiguration: {
		open:   func(env model.Env, obj *wire.Object) Document { return ConfigurationOfJSON(env, obj) },
		create: func(env model.Env) Document { return NewConfiguration(env) },
		decode: func(obj *wire.Object) any { return ConfigurationFromDB(obj) },
	},
}

func lookup(scope string) (documentType, error) {
	t, ok := documentTypes[scope]
	if !ok {
		return documentType{}, fmt.Errorf("%q: %w", scope, ErrUnknownScope)
	}
	return t, nil
}

// Scopes lists the registered document scopes.
func Scopes() []string {
	out := make([]string, 0, len(documentTypes))
	for s := range documentTypes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open builds a clean document of scope from its wire form.
func Open(env model.Env, scope string, obj *wire.Object) (Document, error) {
	t, err := lookup(scope)
	if err != nil {
		return nil, err
	}
	return t.open(env, obj), nil
}

// New creates an empty, new document of scope named name.
func New(env model.Env, scope, name string) (Document, error) {
	t, err := lookup(scope)
	if err != nil {
		return nil, err
	}
	doc := t.create(env)
	doc.SetName(name)
	return doc, nil
}

// Decode returns the normalized data of a wire document without building
// an entity.
func Decode(scope string, obj *wire.Object) (any, error) {
	t, err := lookup(scope)
	if err != nil {
		return nil, err
	}
	return t.decode(obj), nil
}
