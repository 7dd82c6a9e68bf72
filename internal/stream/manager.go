package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/narvanalabs/mission-console/internal/clock"
	"github.com/narvanalabs/mission-console/internal/models"
)

// DefaultReconnectDelay is the fixed wait between a failure and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("stream manager already started")
	// ErrConnClosed marks a read error caused by the peer closing the stream.
	ErrConnClosed = errors.New("stream closed")
)

// Conn is an open stream transport.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the transport
	// fails. A peer close is reported as an error wrapping ErrConnClosed.
	ReadMessage() ([]byte, error)
	// Close releases the transport and unblocks a pending ReadMessage.
	Close() error
}

// Dialer opens stream transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler receives decoded frames in arrival order, always from the
// Manager's event loop goroutine.
type Handler interface {
	HandleHistory(entries []models.LogEntry)
	HandleLog(entry models.LogEntry)
}

// Manager owns the lifecycle of one stream connection. It starts in
// connecting, moves to connected once the transport opens, drops to
// disconnected on any close or error, and retries after a fixed delay for
// as long as it runs. Callers can only observe the state; Stop is the
// only way to end the loop.
type Manager struct {
	url            string
	dialer         Dialer
	handler        Handler
	clock          clock.Clock
	logger         *slog.Logger
	reconnectDelay time.Duration
	onState        func(State)

	mu      sync.RWMutex
	state   State
	started bool

	events   chan Event
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	attempts atomic.Uint64
	dropped  atomic.Uint64

	// Owned by the event loop.
	conn       Conn
	timer      clock.Timer
	generation uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for the reconnect timer.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.reconnectDelay = d
	}
}

// WithStateListener registers fn to be called on every state change.
// fn runs on the event loop and must not block.
func WithStateListener(fn func(State)) Option {
	return func(m *Manager) {
		m.onState = fn
	}
}

// NewManager creates a manager for the stream at url.
func NewManager(url string, dialer Dialer, handler Handler, opts ...Option) *Manager {
	m := &Manager{
		url:            url,
		dialer:         dialer,
		handler:        handler,
		clock:          clock.Real(),
		logger:         slog.Default(),
		reconnectDelay: DefaultReconnectDelay,
		state:          StateConnecting,
		events:         make(chan Event),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	return m
}

// Start begins connecting in the background and returns immediately.
// Cancelling ctx has the same effect as Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.logger.Info("starting log stream", "url", m.url)
	go m.run(ctx)
	return nil
}

// Stop cancels any pending reconnect, closes the open transport and waits
// for the event loop to exit. No state transitions happen afterwards.
// Stop is safe to call more than once and before Start.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		started := m.started
		m.started = true
		cancel := m.cancel
		m.mu.Unlock()

		if !started {
			close(m.done)
			return
		}
		cancel()
		<-m.done
		m.logger.Info("log stream stopped")
	})
}

// Done is closed once the manager has stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current connectivity state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Attempts returns how many connection attempts have been made.
func (m *Manager) Attempts() uint64 {
	return m.attempts.Load()
}

// Dropped returns how many frames were discarded as malformed or unknown.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

// Do runs fn on the event loop, serialized with frame handling, and waits
// for it to return. Before Start and after the loop has exited fn runs on
// the calling goroutine, since nothing else can be mutating then. Do must
// not be called from a Handler or state listener.
func (m *Manager) Do(fn func()) {
	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()

	if started {
		done := make(chan struct{})
		ev := Event{Kind: eventLocal, fn: func() {
			defer close(done)
			fn()
		}}
		select {
		case m.events <- ev:
			<-done
			return
		case <-m.done:
		}
	}
	fn()
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.teardown()

	m.connect(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

// post hands an event to the loop. It reports false if the loop has
// stopped.
func (m *Manager) post(ctx context.Context, ev Event) bool {
	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) handle(ctx context.Context, ev Event) {
	if ev.Kind == eventLocal {
		ev.fn()
		return
	}
	if ev.generation != m.generation {
		// Left over from a connection attempt that has been superseded.
		if ev.Conn != nil {
			ev.Conn.Close()
		}
		return
	}

	switch ev.Kind {
	case EventOpened:
		m.conn = ev.Conn
		m.setState(Transition(m.State(), ev.Kind))
		go m.read(ctx, ev.generation, ev.Conn)

	case EventMessage:
		m.ingest(ev.Data)

	case EventClosed, EventErrored:
		m.logger.Warn("log stream disconnected",
			"event", ev.Kind.String(),
			"error", ev.Err,
			"retry_in", m.reconnectDelay.String(),
		)
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
		}
		m.generation++
		generation := m.generation
		m.timer = m.clock.AfterFunc(m.reconnectDelay, func() {
			m.post(ctx, Event{Kind: EventRetry, generation: generation})
		})
		m.setState(Transition(m.State(), ev.Kind))

	case EventRetry:
		m.timer = nil
		m.connect(ctx)
	}
}

// connect starts a new connection attempt.
func (m *Manager) connect(ctx context.Context) {
	m.generation++
	generation := m.generation
	m.attempts.Add(1)
	m.setState(Transition(m.State(), EventRetry))

	go func() {
		conn, err := m.dialer.Dial(ctx, m.url)
		if err != nil {
			m.post(ctx, Event{Kind: EventErrored, Err: err, generation: generation})
			return
		}
		if !m.post(ctx, Event{Kind: EventOpened, Conn: conn, generation: generation}) {
			conn.Close()
		}
	}()
}

// read pumps frames from conn into the loop until the transport fails.
func (m *Manager) read(ctx context.Context, generation uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			kind := EventErrored
			if errors.Is(err, ErrConnClosed) {
				kind = EventClosed
			}
			m.post(ctx, Event{Kind: kind, Err: err, generation: generation})
			return
		}
		if !m.post(ctx, Event{Kind: EventMessage, Data: data, generation: generation}) {
			return
		}
	}
}

// ingest decodes one frame and forwards it to the handler. Frames that
// fail to decode are logged and dropped; ingestion carries on.
func (m *Manager) ingest(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		m.dropped.Add(1)
		m.logger.Warn("dropping stream message", "error", err, "bytes", len(data))
		return
	}

	switch msg.Type {
	case TypeHistory:
		m.logger.Debug("received log history", "entries", len(msg.Logs))
		m.handler.HandleHistory(msg.Logs)
	case TypeLog:
		m.handler.HandleLog(*msg.Entry)
	}
}

func (m *Manager) teardown() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Debug("error closing stream", "error", err)
		}
		m.conn = nil
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	previous := m.state
	m.state = s
	m.mu.Unlock()

	m.logger.Info("log stream state changed", "from", previous.String(), "to", s.String())
	if m.onState != nil {
		m.onState(s)
	}
}
