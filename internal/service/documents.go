package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/flowide/internal/domain"
	"github.com/example/flowide/internal/log"
	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/notify"
	"github.com/example/flowide/internal/observability"
	"github.com/example/flowide/internal/observable"
	"github.com/example/flowide/internal/storage"
	"github.com/example/flowide/internal/wire"
)

// ErrInvalidDocument is returned by Save when validation fails.
var ErrInvalidDocument = errors.New("invalid document")

// DateLayout is the format of LastUpdate dates.
const DateLayout = "02/01/2006 at 15:04:05"

// Tracked is a document opened through the service, with the store
// revision it was read or last saved at. Revision 0 means never saved.
type Tracked struct {
	Doc      domain.Document
	Revision int64
}

// Key returns the storage key of the document.
func (t *Tracked) Key() storage.Key {
	return storage.Key{Workspace: t.Doc.Workspace(), Scope: t.Doc.Scope(), Name: t.Doc.Name()}
}

// DocumentService opens, validates and saves documents, and announces
// their changes.
type DocumentService struct {
	storage  storage.Storage
	env      model.Env
	notifier *notify.Broadcaster
	metrics  *observability.Metrics
	logger   log.Logger
	user     string
	now      func() time.Time
}

type Option func(*DocumentService)

// WithNotifier publishes through b instead of a private broadcaster.
func WithNotifier(b *notify.Broadcaster) Option {
	return func(s *DocumentService) { s.notifier = b }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *DocumentService) { s.metrics = m }
}

func WithLogger(l log.Logger) Option {
	return func(s *DocumentService) { s.logger = log.Or(l) }
}

// WithUser sets the user recorded in LastUpdate on save.
func WithUser(user string) Option {
	return func(s *DocumentService) { s.user = user }
}

func WithClock(now func() time.Time) Option {
	return func(s *DocumentService) { s.now = now }
}

// NewDocumentService creates a document service over store. Documents it
// opens are built with env.
func NewDocumentService(store storage.Storage, env model.Env, opts ...Option) *DocumentService {
	s := &DocumentService{
		storage: store,
		env:     env,
		logger:  env.Log(),
		user:    model.NotAvailable,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewBroadcaster(notify.WithMetrics(s.metrics), notify.WithLogger(s.logger))
	}
	return s
}

// Notifier returns the broadcaster events are published on.
func (s *DocumentService) Notifier() *notify.Broadcaster { return s.notifier }

// Create returns a new, unsaved document.
func (s *DocumentService) Create(workspace, scope, name string) (*Tracked, error) {
	if name == "" {
		return nil, fmt.Errorf("document name: %w", domain.ErrInvalidArgument)
	}
	doc, err := domain.New(s.env, scope, name)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		doc.SetWorkspace(workspace)
	}
	return &Tracked{Doc: doc}, nil
}

// Open builds a clean document from a wire document that did not come from
// the store.
func (s *DocumentService) Open(scope string, obj *wire.Object) (*Tracked, error) {
	doc, err := domain.Open(s.env, scope, obj)
	if err != nil {
		return nil, err
	}
	return &Tracked{Doc: doc}, nil
}

// OpenEvent builds the document a store event carries, at the event's
// revision. Deleted events carry none and fail with domain.ErrNotFound.
func (s *DocumentService) OpenEvent(ev *notify.Event) (*Tracked, error) {
	obj := ev.Document()
	if obj == nil {
		return nil, fmt.Errorf("%s: %w", ev.URL(), domain.ErrNotFound)
	}
	obj.Set("workspace", ev.Workspace)
	doc, err := domain.Open(s.env, ev.Scope, obj)
	if err != nil {
		return nil, err
	}
	doc.SetIsLoaded(true)
	return &Tracked{Doc: doc, Revision: ev.Revision}, nil
}

// Load reads a document from the store.
func (s *DocumentService) Load(ctx context.Context, key storage.Key) (*Tracked, error) {
	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rec, err := uow.Documents().Get(ctx, key)
	if err != nil {
		return nil, err
	}

	rec.Doc.Set("workspace", key.Workspace)
	doc, err := domain.Open(s.env, key.Scope, rec.Doc)
	if err != nil {
		return nil, err
	}
	doc.SetIsLoaded(true)
	s.logger.Debug("loaded", "url", doc.URL(), "revision", rec.Revision)
	return &Tracked{Doc: doc, Revision: rec.Revision}, nil
}

// Save validates the document, stamps LastUpdate and writes it. A document
// that changed in the store since it was read fails with
// domain.ErrConcurrentModify.
func (s *DocumentService) Save(ctx context.Context, t *Tracked) error {
	start := time.Now()
	doc := t.Doc

	validateStart := time.Now()
	res := doc.Validate(ctx)
	if s.metrics != nil {
		s.metrics.ValidateDuration().WithLabels(doc.Scope()).Since(validateStart)
	}
	if !res.Result {
		return fmt.Errorf("%s: %w: %s", doc.URL(), ErrInvalidDocument, res.Error)
	}

	prevDetails := doc.Details()
	doc.SetDetails(model.Details{User: s.user, Date: s.now().Format(DateLayout)})

	serializeStart := time.Now()
	rec := &storage.Record{Key: t.Key(), Doc: doc.SerializeToDB(), Revision: t.Revision}
	if s.metrics != nil {
		s.metrics.SerializeDuration().WithLabels(doc.Scope()).Since(serializeStart)
	}

	kind, err := s.write(ctx, rec)
	if err != nil {
		doc.SetDetails(prevDetails)
		return err
	}

	t.Revision = rec.Revision
	doc.SetIsNew(false)
	doc.SetIsLoaded(true)
	doc.SetDirty(false)
	if s.metrics != nil {
		s.metrics.SaveDuration().WithLabels(doc.Scope()).Since(start)
	}
	s.logger.Info("saved", "url", doc.URL(), "revision", rec.Revision)

	s.publish(kind, rec.Key, rec.Doc, rec.Revision)
	return nil
}

func (s *DocumentService) write(ctx context.Context, rec *storage.Record) (notify.Kind, error) {
	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	kind := notify.Updated
	if rec.Revision == 0 {
		kind = notify.Created
		err = uow.Documents().Create(ctx, rec)
	} else {
		err = uow.Documents().Update(ctx, rec)
	}
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return kind, nil
}

// Delete removes a document from the store.
func (s *DocumentService) Delete(ctx context.Context, key storage.Key) error {
	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Documents().Delete(ctx, key); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("deleted", "url", key.String())
	s.publish(notify.Deleted, key, nil, 0)
	return nil
}

// List returns the keys of stored documents.
func (s *DocumentService) List(ctx context.Context, opts storage.ListOptions) ([]storage.Key, error) {
	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	recs, err := uow.Documents().List(ctx, opts)
	if err != nil {
		return nil, err
	}
	keys := make([]storage.Key, len(recs))
	for i, rec := range recs {
		keys[i] = rec.Key
	}
	return keys, nil
}

// Watch subscribes to document events matching f. Call the returned
// function to stop watching.
func (s *DocumentService) Watch(f notify.Filter) (*notify.Subscriber, func()) {
	sub := s.notifier.Subscribe(f)
	return sub, func() { s.notifier.Unsubscribe(sub) }
}

// Track publishes a Changed event for every local change of the document
// until the returned function is called.
func (s *DocumentService) Track(t *Tracked) func() {
	key := t.Key()
	id := t.Doc.Subscribe(func(ev observable.Event) {
		s.notifier.Publish(&notify.Event{
			Kind:      notify.Changed,
			Workspace: key.Workspace,
			Scope:     key.Scope,
			Name:      key.Name,
			Field:     ev.Field,
		})
	})
	return func() { t.Doc.Unsubscribe(id) }
}

// ConfigSource returns the code of a stored configuration. It serves as
// the validation lookup for $(config ...) references.
func (s *DocumentService) ConfigSource(workspace string) func(ctx context.Context, name string) (string, error) {
	return func(ctx context.Context, name string) (string, error) {
		t, err := s.Load(ctx, storage.Key{Workspace: workspace, Scope: domain.ScopeConfiguration, Name: name})
		if err != nil {
			return "", err
		}
		defer t.Doc.Destroy()
		return t.Doc.(*domain.Configuration).Code(), nil
	}
}

func (s *DocumentService) publish(kind notify.Kind, key storage.Key, doc *wire.Object, revision int64) {
	ev, err := notify.NewEvent(kind, key.Workspace, key.Scope, key.Name, doc)
	if err != nil {
		s.logger.Error("failed to build event", "url", key.String(), "err", err)
		return
	}
	ev.Revision = revision
	s.notifier.Publish(ev)
}
