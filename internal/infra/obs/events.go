package obs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"luxrent/internal/app/policies"
)

// Event is the record handed to a MonitoringSink. Data is already redacted.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	EventType string            `json:"eventType"`
	Severity  policies.Severity `json:"severity"`
	Data      map[string]any    `json:"data"`
	RequestID string            `json:"requestId,omitempty"`
}

// MonitoringSink ships events to an external system.
type MonitoringSink interface {
	Send(ctx context.Context, ev Event) error
}

type EventLoggerOption func(*EventLogger)

// WithSink forwards every event to sink asynchronously.
func WithSink(sink MonitoringSink) EventLoggerOption {
	return func(l *EventLogger) { l.sink = sink }
}

// WithMaxInFlight bounds concurrent sink deliveries; events beyond it are dropped.
func WithMaxInFlight(n int) EventLoggerOption {
	return func(l *EventLogger) {
		if n > 0 {
			l.sem = make(chan struct{}, n)
		}
	}
}

func WithSinkTimeout(d time.Duration) EventLoggerOption {
	return func(l *EventLogger) {
		if d > 0 {
			l.sinkTimeout = d
		}
	}
}

func WithEventClock(now func() time.Time) EventLoggerOption {
	return func(l *EventLogger) {
		if now != nil {
			l.now = now
		}
	}
}

// EventLogger writes business events as structured slog records.
type EventLogger struct {
	logger      *slog.Logger
	service     string
	sink        MonitoringSink
	sem         chan struct{}
	sinkTimeout time.Duration
	now         func() time.Time
	wg          sync.WaitGroup
}

func NewEventLogger(logger *slog.Logger, service string, opts ...EventLoggerOption) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &EventLogger{
		logger:      logger,
		service:     service,
		sem:         make(chan struct{}, 16),
		sinkTimeout: 5 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *EventLogger) LogEvent(ctx context.Context, eventType string, data map[string]any, severity policies.Severity) {
	ev := Event{
		Timestamp: l.now(),
		Service:   l.service,
		EventType: eventType,
		Severity:  severity,
		Data:      Redact(data),
		RequestID: RequestIDFromContext(ctx),
	}
	l.logger.Log(ctx, severityLevel(severity), eventType,
		"timestamp", ev.Timestamp,
		"service", ev.Service,
		"eventType", ev.EventType,
		"severity", string(ev.Severity),
		"data", ev.Data,
		"requestId", ev.RequestID,
	)
	if l.sink == nil {
		return
	}
	select {
	case l.sem <- struct{}{}:
	default:
		l.logger.DebugContext(ctx, "monitoring sink saturated, event dropped", "eventType", eventType)
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() { <-l.sem }()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.sinkTimeout)
		defer cancel()
		if err := l.sink.Send(sendCtx, ev); err != nil {
			l.logger.DebugContext(ctx, "monitoring sink delivery failed", "eventType", eventType, "error", err)
		}
	}()
}

// Flush waits for in-flight sink deliveries or until ctx is done.
func (l *EventLogger) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func severityLevel(s policies.Severity) slog.Level {
	switch s {
	case policies.SeverityDebug:
		return slog.LevelDebug
	case policies.SeverityWarn:
		return slog.LevelWarn
	case policies.SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Redact returns a copy of data with customer identifiers masked. The input is not modified.
func Redact(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case "customerEmail":
			out[k] = maskEmail(stringify(v))
		case "paymentReferenceId", "paymentIntentId":
			out[k] = maskReference(stringify(v))
		default:
			out[k] = v
		}
	}
	return out
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func maskEmail(email string) string {
	runes := []rune(email)
	prefix := string(runes[:min(2, len(runes))])
	at := strings.Index(email, "@")
	if at < 0 {
		return prefix + "***"
	}
	return prefix + "***" + email[at:]
}

func maskReference(ref string) string {
	runes := []rune(ref)
	if len(runes) < 4 {
		return "***"
	}
	return "***" + string(runes[len(runes)-4:])
}

var _ policies.EventLogger = (*EventLogger)(nil)
