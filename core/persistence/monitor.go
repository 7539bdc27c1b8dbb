package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	events "github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kishultan/go-strata/core/query"
)

// ExecutionEventType names the monitor's event stream topics.
type ExecutionEventType string

const (
	EventExecution ExecutionEventType = "query:execute"
	EventSlowQuery ExecutionEventType = "query:slow"
)

// ExecutionRecord captures one execution observed by the monitor.
type ExecutionRecord struct {
	ID             string             `json:"id"`
	Type           ExecutionEventType `json:"type"`
	Entity         string             `json:"entity"`
	Kind           query.Kind         `json:"kind"`
	Representation string             `json:"representation"`
	Params         []any              `json:"params,omitempty"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     time.Time          `json:"finishedAt"`
	Duration       time.Duration      `json:"duration"`
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
	Cardinality    int64              `json:"cardinality"`
}

// MonitorStats aggregates every execution the monitor has seen.
type MonitorStats struct {
	Executions    int64
	Failures      int64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Monitor records per-execution diagnostics, keeps a bounded buffer of
// recent records, derives aggregate and slow-query statistics, and publishes
// records on a typed event bus. Every observation path is best-effort: the
// monitor never blocks and never fails the query it observes.
type Monitor struct {
	slowThreshold time.Duration
	capacity      int
	logger        *zap.Logger
	bus           *events.TypedEventBus[ExecutionRecord]

	mu      sync.Mutex
	records []ExecutionRecord
	stats   MonitorStats
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithSlowThreshold sets the duration past which an execution is recorded
// and emitted as a slow query.
func WithSlowThreshold(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.slowThreshold = d }
}

// WithCapacity bounds the retained record buffer.
func WithCapacity(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithMonitorLogger attaches a logger.
func WithMonitorLogger(l *zap.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMonitor creates a monitor. The event bus is optional infrastructure:
// when it cannot be constructed the monitor degrades to record-keeping only.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		slowThreshold: 500 * time.Millisecond,
		capacity:      256,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	bus, err := events.NewTypedEventBus[ExecutionRecord](events.DefaultConfig())
	if err != nil {
		m.logger.Warn("execution event bus unavailable", zap.Error(err))
	} else {
		m.bus = bus
	}
	return m
}

// Subscribe registers a callback for an execution event type and returns its
// unsubscribe function.
func (m *Monitor) Subscribe(event ExecutionEventType, callback func(ctx context.Context, record ExecutionRecord) error) func() {
	if m.bus == nil {
		return func() {}
	}
	return m.bus.Subscribe(string(event), callback)
}

// observe files one finished execution.
func (m *Monitor) observe(record ExecutionRecord) {
	record.ID = uuid.New().String()
	record.Duration = record.FinishedAt.Sub(record.StartedAt)
	record.Type = EventExecution

	m.mu.Lock()
	m.stats.Executions++
	if !record.Success {
		m.stats.Failures++
	}
	m.stats.TotalDuration += record.Duration
	if record.Duration > m.stats.MaxDuration {
		m.stats.MaxDuration = record.Duration
	}
	m.records = append(m.records, record)
	if len(m.records) > m.capacity {
		m.records = m.records[len(m.records)-m.capacity:]
	}
	m.mu.Unlock()

	m.emit(record)
	if record.Duration >= m.slowThreshold {
		slow := record
		slow.Type = EventSlowQuery
		m.logger.Warn("slow query",
			zap.String("entity", record.Entity),
			zap.String("representation", record.Representation),
			zap.Duration("duration", record.Duration))
		m.emit(slow)
	}
}

// emit publishes a record, swallowing any subscriber panic so observation
// can never fail the query path.
func (m *Monitor) emit(record ExecutionRecord) {
	if m.bus == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("execution event emission panicked", zap.Any("panic", r))
		}
	}()
	m.bus.Emit(string(record.Type), record)
}

// Stats returns the aggregate statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Recent returns a snapshot of the retained records, newest last.
func (m *Monitor) Recent() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// SlowQueries returns the retained records at or above the slow threshold,
// slowest first.
func (m *Monitor) SlowQueries() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutionRecord
	for _, r := range m.records {
		if r.Duration >= m.slowThreshold {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Duration > out[j].Duration })
	return out
}

// MonitoredExecutor decorates an executor with execution monitoring.
type MonitoredExecutor struct {
	next    Executor
	monitor *Monitor
}

// NewMonitoredExecutor wraps an executor so every execution is observed by
// the monitor.
func NewMonitoredExecutor(next Executor, monitor *Monitor) *MonitoredExecutor {
	return &MonitoredExecutor{next: next, monitor: monitor}
}

// Monitor exposes the underlying monitor for stats and subscriptions.
func (e *MonitoredExecutor) Monitor() *Monitor {
	return e.monitor
}

func (e *MonitoredExecutor) record(rendered *query.Rendered, started time.Time, cardinality int64, err error) {
	rec := ExecutionRecord{
		Entity:         rendered.Entity,
		Kind:           rendered.Kind,
		Representation: rendered.Text,
		Params:         append([]any(nil), rendered.Params...),
		StartedAt:      started,
		FinishedAt:     time.Now(),
		Success:        err == nil,
		Cardinality:    cardinality,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	e.monitor.observe(rec)
}

// ExecuteList delegates and records the execution.
func (e *MonitoredExecutor) ExecuteList(ctx context.Context, rendered *query.Rendered, mapper *Mapper) ([]any, error) {
	started := time.Now()
	result, err := e.next.ExecuteList(ctx, rendered, mapper)
	e.record(rendered, started, int64(len(result)), err)
	return result, err
}

// ExecuteCount delegates and records the execution.
func (e *MonitoredExecutor) ExecuteCount(ctx context.Context, rendered *query.Rendered) (int64, error) {
	started := time.Now()
	count, err := e.next.ExecuteCount(ctx, rendered)
	e.record(rendered, started, 1, err)
	return count, err
}

// ExecuteWrite delegates and records the execution.
func (e *MonitoredExecutor) ExecuteWrite(ctx context.Context, rendered *query.Rendered) (int64, error) {
	started := time.Now()
	affected, err := e.next.ExecuteWrite(ctx, rendered)
	e.record(rendered, started, affected, err)
	return affected, err
}
