package logs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/mission-console/internal/models"
)

// ChangeKind identifies what happened to the buffer or the connection.
type ChangeKind string

const (
	// ChangeReplaced means a history snapshot replaced the buffer.
	ChangeReplaced ChangeKind = "replaced"
	// ChangeAppended means one entry was appended; Change.Entry is set.
	ChangeAppended ChangeKind = "appended"
	// ChangeCleared means the buffer was cleared locally.
	ChangeCleared ChangeKind = "cleared"
	// ChangeState means the connection state changed; Change.State is set.
	ChangeState ChangeKind = "state"
)

// Change is a notification delivered to subscribers. Version is the
// buffer version right after the mutation; state changes carry zero.
type Change struct {
	Kind    ChangeKind
	Entry   *models.LogEntry
	State   string
	Version uint64
}

// Subscriber receives change notifications on Ch. A value on Resync means
// at least one change was dropped because Ch was full; the subscriber must
// rebuild its view from a fresh snapshot and ignore queued changes that
// snapshot already covers.
type Subscriber struct {
	ID        string
	Ch        chan Change
	Resync    chan struct{}
	CreatedAt time.Time
}

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 256

// Broker fans buffer and connection changes out to subscribers.
// Publishing never blocks: a subscriber whose channel is full misses the
// change and is signalled on Resync instead.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates a new change broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber.
func (b *Broker) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Ch:        make(chan Change, subscriberBuffer),
		Resync:    make(chan struct{}, 1),
		CreatedAt: time.Now(),
	}
	b.subscribers[sub.ID] = sub
	b.logger.Debug("subscriber added", "subscriber_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish delivers a change to every subscriber.
func (b *Broker) Publish(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.Ch <- change:
		default:
			select {
			case sub.Resync <- struct{}{}:
				b.logger.Warn("subscriber channel full, dropping change",
					"subscriber_id", sub.ID,
					"kind", change.Kind,
				)
			default:
				// Resync already pending.
			}
		}
	}
}

// Close unsubscribes everyone.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.Ch)
		delete(b.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
