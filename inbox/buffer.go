package inbox

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBufferDelay is how long a user must be quiet before their
// buffered messages are flushed.
const DefaultBufferDelay = 3 * time.Second

// FlushFunc receives the joined messages of one burst.
type FlushFunc func(userID, text string)

type pendingMessages struct {
	messages []string
	timer    *time.Timer
	gen      uint64
}

// userLock serialises one user's flushes. refs counts deliveries holding or
// waiting on it; the lock is dropped from the map when it reaches zero.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Buffer debounces messages per user. Flushes for the same user never
// overlap; flushes for different users run concurrently.
type Buffer struct {
	delay  time.Duration
	flush  FlushFunc
	logger *slog.Logger

	mu        sync.Mutex
	pending   map[string]*pendingMessages
	userLocks map[string]*userLock
	stopped   bool

	inflight sync.WaitGroup
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithDelay sets the quiet period. Default is 3s.
func WithDelay(delay time.Duration) BufferOption {
	return func(b *Buffer) {
		if delay > 0 {
			b.delay = delay
		}
	}
}

// WithBufferLogger sets a custom logger.
// Default is slog.Default().
func WithBufferLogger(logger *slog.Logger) BufferOption {
	return func(b *Buffer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuffer creates a Buffer that hands each completed burst to flush.
func NewBuffer(flush FlushFunc, opts ...BufferOption) (*Buffer, error) {
	if flush == nil {
		return nil, ErrFlushFuncRequired
	}
	b := &Buffer{
		delay:   DefaultBufferDelay,
		flush:   flush,
		logger:  slog.Default(),
		pending:   make(map[string]*pendingMessages),
		userLocks: make(map[string]*userLock),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "inbox-buffer")
	return b, nil
}

// Delay returns the configured quiet period.
func (b *Buffer) Delay() time.Duration {
	return b.delay
}

// Enqueue appends text to userID's burst and restarts their timer.
func (b *Buffer) Enqueue(userID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrBufferStopped
	}

	p, ok := b.pending[userID]
	if !ok {
		p = &pendingMessages{}
		b.pending[userID] = p
	}
	p.messages = append(p.messages, text)
	if p.timer != nil {
		p.timer.Stop()
	}
	// A timer that already fired but lost the race for mu sees a stale gen.
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(b.delay, func() { b.fire(userID, gen) })
	b.logger.Debug("message buffered", "user", userID, "pending", len(p.messages))
	return nil
}

func (b *Buffer) fire(userID string, gen uint64) {
	b.mu.Lock()
	p, ok := b.pending[userID]
	if !ok || p.gen != gen {
		b.mu.Unlock()
		return
	}
	delete(b.pending, userID)
	lock := b.begin(userID)
	b.mu.Unlock()

	b.deliver(lock, userID, p.messages)
}

// begin registers a delivery for userID and returns the user's lock.
// b.mu must be held.
func (b *Buffer) begin(userID string) *userLock {
	lock, ok := b.userLocks[userID]
	if !ok {
		lock = &userLock{}
		b.userLocks[userID] = lock
	}
	lock.refs++
	b.inflight.Add(1)
	return lock
}

func (b *Buffer) deliver(lock *userLock, userID string, messages []string) {
	defer b.inflight.Done()
	defer b.release(lock, userID)

	lock.mu.Lock()
	defer lock.mu.Unlock()

	b.logger.Debug("flushing burst", "user", userID, "messages", len(messages))
	b.flush(userID, strings.Join(messages, "\n"))
}

func (b *Buffer) release(lock *userLock, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(b.userLocks, userID)
	}
}

// take removes userID's pending burst and stops its timer.
func (b *Buffer) take(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.takeLocked(userID)
}

func (b *Buffer) takeLocked(userID string) []string {
	p, ok := b.pending[userID]
	if !ok {
		return nil
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	delete(b.pending, userID)
	return p.messages
}

// Flush delivers userID's burst immediately on the calling goroutine.
// It reports whether anything was pending.
func (b *Buffer) Flush(userID string) bool {
	b.mu.Lock()
	messages := b.takeLocked(userID)
	if len(messages) == 0 {
		b.mu.Unlock()
		return false
	}
	lock := b.begin(userID)
	b.mu.Unlock()

	b.deliver(lock, userID, messages)
	return true
}

// Discard drops userID's burst without flushing and returns how many
// messages were dropped.
func (b *Buffer) Discard(userID string) int {
	n := len(b.take(userID))
	if n > 0 {
		b.logger.Debug("discarded burst", "user", userID, "messages", n)
	}
	return n
}

// Pending returns a copy of userID's buffered messages.
func (b *Buffer) Pending(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[userID]
	if !ok {
		return nil
	}
	return append([]string(nil), p.messages...)
}

// Stop cancels every timer and drops pending bursts, then waits for flushes
// already running to return. Enqueue fails afterwards. Stop must not be
// called from a FlushFunc.
func (b *Buffer) Stop() {
	b.mu.Lock()
	b.stopped = true
	for userID, p := range b.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(b.pending, userID)
	}
	b.mu.Unlock()

	b.inflight.Wait()
}
