package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Metrics holds the in-process metrics of the document engine.
type Metrics struct {
	// Observable metrics
	dispatches       *CounterVec
	subscriberPanics *CounterVec

	// Database metrics
	dbTransactionBegin   *Histogram
	dbTransactionCommit  *Histogram
	dbQueryDuration      *HistogramVec
	dbActiveTransactions *AtomicGauge

	// Service layer metrics
	serializeDuration *HistogramVec
	validateDuration  *HistogramVec
	saveDuration      *HistogramVec

	// Notification metrics
	notifyPublished   *Counter
	notifyDelivered   *Counter
	notifyDropped     *Counter
	notifySubscribers *AtomicGauge
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics() *Metrics {
	return &Metrics{
		dispatches:       NewCounterVec(),
		subscriberPanics: NewCounterVec(),

		dbTransactionBegin:   NewHistogram(),
		dbTransactionCommit:  NewHistogram(),
		dbQueryDuration:      NewHistogramVec(),
		dbActiveTransactions: NewAtomicGauge(),

		serializeDuration: NewHistogramVec(),
		validateDuration:  NewHistogramVec(),
		saveDuration:      NewHistogramVec(),

		notifyPublished:   NewCounter(),
		notifyDelivered:   NewCounter(),
		notifyDropped:     NewCounter(),
		notifySubscribers: NewAtomicGauge(),
	}
}

// Observable metrics accessors
func (m *Metrics) Dispatches() *CounterVec       { return m.dispatches }
func (m *Metrics) SubscriberPanics() *CounterVec { return m.subscriberPanics }

// Database metrics accessors
func (m *Metrics) DBTransactionBegin() *Histogram     { return m.dbTransactionBegin }
func (m *Metrics) DBTransactionCommit() *Histogram    { return m.dbTransactionCommit }
func (m *Metrics) DBQueryDuration() *HistogramVec     { return m.dbQueryDuration }
func (m *Metrics) DBActiveTransactions() *AtomicGauge { return m.dbActiveTransactions }

// Service layer metrics accessors
func (m *Metrics) SerializeDuration() *HistogramVec { return m.serializeDuration }
func (m *Metrics) ValidateDuration() *HistogramVec  { return m.validateDuration }
func (m *Metrics) SaveDuration() *HistogramVec      { return m.saveDuration }

// Notification metrics accessors
func (m *Metrics) NotifyPublished() *Counter       { return m.notifyPublished }
func (m *Metrics) NotifyDelivered() *Counter       { return m.notifyDelivered }
func (m *Metrics) NotifyDropped() *Counter         { return m.notifyDropped }
func (m *Metrics) NotifySubscribers() *AtomicGauge { return m.notifySubscribers }

// Dispatched counts one observable dispatch of field.
func (m *Metrics) Dispatched(field string, subscribers int) {
	m.dispatches.WithLabels(field).Inc()
}

// Recovered counts a subscriber that panicked while handling field.
func (m *Metrics) Recovered(field string) {
	m.subscriberPanics.WithLabels(field).Inc()
}

// Snapshot returns a snapshot of all metrics for reporting.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		Dispatches:       m.dispatches.Snapshot(),
		SubscriberPanics: m.subscriberPanics.Snapshot(),

		DBTransactionBegin:   m.dbTransactionBegin.Snapshot(),
		DBTransactionCommit:  m.dbTransactionCommit.Snapshot(),
		DBQueryDuration:      m.dbQueryDuration.Snapshot(),
		DBActiveTransactions: m.dbActiveTransactions.Get(),

		SerializeDuration: m.serializeDuration.Snapshot(),
		ValidateDuration:  m.validateDuration.Snapshot(),
		SaveDuration:      m.saveDuration.Snapshot(),

		NotifyPublished:   m.notifyPublished.Get(),
		NotifyDelivered:   m.notifyDelivered.Get(),
		NotifyDropped:     m.notifyDropped.Get(),
		NotifySubscribers: m.notifySubscribers.Get(),
	}
}

// MetricsSnapshot holds a point-in-time snapshot of all metrics.
type MetricsSnapshot struct {
	Dispatches       map[string]int64 `json:"dispatches"`
	SubscriberPanics map[string]int64 `json:"subscriber_panics"`

	DBTransactionBegin   HistogramSnapshot            `json:"db_transaction_begin"`
	DBTransactionCommit  HistogramSnapshot            `json:"db_transaction_commit"`
	DBQueryDuration      map[string]HistogramSnapshot `json:"db_query_duration"`
	DBActiveTransactions int64                        `json:"db_active_transactions"`

	SerializeDuration map[string]HistogramSnapshot `json:"serialize_duration"`
	ValidateDuration  map[string]HistogramSnapshot `json:"validate_duration"`
	SaveDuration      map[string]HistogramSnapshot `json:"save_duration"`

	NotifyPublished   int64 `json:"notify_published"`
	NotifyDelivered   int64 `json:"notify_delivered"`
	NotifyDropped     int64 `json:"notify_dropped"`
	NotifySubscribers int64 `json:"notify_subscribers"`
}

// WriteJSON writes the snapshot as indented JSON.
func (m *Metrics) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(m.Snapshot())
}

// WriteText writes a human-readable report.
func (m *Metrics) WriteText(w io.Writer) {
	snapshot := m.Snapshot()

	fmt.Fprintf(w, "# flowide metrics\n\n")

	fmt.Fprintf(w, "## Observables\n\n")
	writeCounters(w, "Dispatches by field", snapshot.Dispatches)
	writeCounters(w, "Subscriber panics by field", snapshot.SubscriberPanics)

	fmt.Fprintf(w, "## Database\n\n")
	writeHistogramSummary(w, "DB Transaction Begin", snapshot.DBTransactionBegin)
	writeHistogramSummary(w, "DB Transaction Commit", snapshot.DBTransactionCommit)
	fmt.Fprintf(w, "DB Active Transactions: %d\n\n", snapshot.DBActiveTransactions)
	writeHistograms(w, "DB Query Duration by query", snapshot.DBQueryDuration)

	fmt.Fprintf(w, "## Documents\n\n")
	writeHistograms(w, "Serialize Duration by scope", snapshot.SerializeDuration)
	writeHistograms(w, "Validate Duration by scope", snapshot.ValidateDuration)
	writeHistograms(w, "Save Duration by scope", snapshot.SaveDuration)

	fmt.Fprintf(w, "## Notifications\n\n")
	fmt.Fprintf(w, "Published: %d, Delivered: %d, Dropped: %d, Subscribers: %d\n",
		snapshot.NotifyPublished, snapshot.NotifyDelivered, snapshot.NotifyDropped, snapshot.NotifySubscribers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeCounters(w io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, label := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %s: %d\n", label, counts[label])
	}
	fmt.Fprintf(w, "\n")
}

func writeHistograms(w io.Writer, title string, hists map[string]HistogramSnapshot) {
	if len(hists) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, label := range sortedKeys(hists) {
		fmt.Fprintf(w, "  %s:\n", label)
		writeHistogramSummaryIndented(w, hists[label])
	}
	fmt.Fprintf(w, "\n")
}

func writeHistogramSummary(w io.Writer, name string, h HistogramSnapshot) {
	if h.Count == 0 {
		fmt.Fprintf(w, "%s: no data\n", name)
		return
	}
	fmt.Fprintf(w, "%s (n=%d):\n", name, h.Count)
	fmt.Fprintf(w, "  Mean: %v, P50: %v, P95: %v, P99: %v, Max: %v\n",
		h.Mean, h.P50, h.P95, h.P99, h.Max)
}

func writeHistogramSummaryIndented(w io.Writer, h HistogramSnapshot) {
	if h.Count == 0 {
		fmt.Fprintf(w, "    no data\n")
		return
	}
	fmt.Fprintf(w, "    Count: %d, Mean: %v, P50: %v, P95: %v, P99: %v, Max: %v\n",
		h.Count, h.Mean, h.P50, h.P95, h.P99, h.Max)
}

// Since observes the time elapsed since start.
func (h *Histogram) Since(start time.Time) {
	h.Observe(time.Since(start))
}
