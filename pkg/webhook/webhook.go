// Package webhook posts campaign events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"digital.vasic.campaigns/pkg/logging"
	"digital.vasic.campaigns/pkg/monitor"
)

// maxErrorBody bounds how much of a rejected response ends up in
// the error.
const maxErrorBody = 512

// Option configures a Notifier.
type Option func(*Notifier)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(n *Notifier) { n.token = token }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.httpClient.Timeout = d
		}
	}
}

// WithEvents restricts the posted events to types. An empty list
// keeps the default of finished campaigns only.
func WithEvents(types ...monitor.EventType) Option {
	return func(n *Notifier) {
		if len(types) == 0 {
			return
		}
		n.events = make(map[monitor.EventType]bool, len(types))
		for _, t := range types {
			n.events[t] = true
		}
	}
}

// WithQueueSize sets how many events may wait for delivery.
func WithQueueSize(size int) Option {
	return func(n *Notifier) {
		if size > 0 {
			n.queueSize = size
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// WithHTTPClient replaces the client requests are sent with.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.httpClient = c }
}

// Notifier is a monitor.Publisher that delivers events as JSON
// POST requests. Publish never blocks: events are queued and sent
// by a single worker, and dropped when the queue is full.
type Notifier struct {
	url        string
	token      string
	events     map[monitor.EventType]bool
	httpClient *http.Client
	logger     logging.Logger
	queueSize  int

	mu      sync.Mutex
	closed  bool
	queue   chan monitor.Event
	done    chan struct{}
	sent    atomic.Int64
	dropped atomic.Int64
}

var _ monitor.Publisher = (*Notifier)(nil)

// New validates target and starts the delivery worker. Close must
// be called to flush pending events.
func New(target string, opts ...Option) (*Notifier, error) {
	if err := ValidateURL(target); err != nil {
		return nil, err
	}
	n := &Notifier{
		url: target,
		events: map[monitor.EventType]bool{
			monitor.EventCampaignCompleted: true,
			monitor.EventCampaignStopped:   true,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.NullLogger{},
		queueSize:  64,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(n)
	}
	n.queue = make(chan monitor.Event, n.queueSize)
	go n.run()
	return n, nil
}

// ValidateURL checks that target is an absolute http(s) URL.
func ValidateURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid webhook url %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid webhook url %q: missing host", target)
	}
	return nil
}

// Publish queues event when its type is selected.
func (n *Notifier) Publish(event monitor.Event) {
	if !n.events[event.Type] {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.dropped.Add(1)
		n.logger.Warn("webhook queue full, event dropped",
			logging.ExecutionField(event.ExecutionID),
			logging.StringField("event", string(event.Type)),
		)
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for event := range n.queue {
		if err := n.Send(context.Background(), event); err != nil {
			n.logger.Warn("failed to deliver webhook",
				logging.ExecutionField(event.ExecutionID),
				logging.StringField("event", string(event.Type)),
				logging.ErrorField(err),
			)
			continue
		}
		n.sent.Add(1)
	}
}

// Send posts event right away.
func (n *Notifier) Send(ctx context.Context, event monitor.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, n.url, bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Campaign-Event", string(event.Type))
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf(
			"webhook returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data),
		)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close stops accepting events and waits for the queued ones to be
// delivered, or for ctx to end.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("webhook delivery interrupted: %w", ctx.Err())
	}
}

// Sent is the number of events delivered.
func (n *Notifier) Sent() int64 { return n.sent.Load() }

// Dropped is the number of events lost to a full queue.
func (n *Notifier) Dropped() int64 { return n.dropped.Load() }
