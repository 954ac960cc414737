package messenger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/escalation"
	"github.com/poiesic/docchat/inbox"
)

const (
	// SessionPrefix is prepended to a sender id to form its session key.
	SessionPrefix = "fb_"

	// DefaultTranscribeTimeout bounds how long one image attachment is read.
	DefaultTranscribeTimeout = 20 * time.Second

	// DefaultAskTimeout bounds answering one flushed burst.
	DefaultAskTimeout = 2 * time.Minute

	// EscalationReply acknowledges a request for staff.
	EscalationReply = "กรุณารอเจ้าหน้าที่มาตอบนะครับ"

	// UnavailableReply is sent when no corpus can answer.
	UnavailableReply = "ขออภัยค่ะ/ครับ ขณะนี้ไม่สามารถให้คำตอบได้"

	// ErrorReply is sent when answering fails.
	ErrorReply = "ขออภัย เกิดข้อผิดพลาดในการประมวลผล กรุณาลองใหม่อีกครั้ง"
)

// Sender delivers replies to Messenger users.
type Sender interface {
	SendText(ctx context.Context, recipient, text string) (bool, error)
	DisplayName(ctx context.Context, psid string) string
}

// Asker answers a question against its session, falling back to the most
// recent corpus.
type Asker interface {
	AskOrLatest(ctx context.Context, q chat.Question) (*chat.Answer, error)
}

// Escalator decides whether a message asks for a human.
type Escalator interface {
	Detect(ctx context.Context, text string) escalation.Result
}

var (
	_ Sender    = (*Client)(nil)
	_ Asker     = (*chat.Service)(nil)
	_ Escalator = (*escalation.Detector)(nil)
)

// Outcome describes what HandleEvent did with an event.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeDuplicate
	OutcomeEscalated
	OutcomeBuffered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeEscalated:
		return "escalated"
	case OutcomeBuffered:
		return "buffered"
	default:
		return "unknown"
	}
}

// Dispatcher routes webhook events into the chat pipeline.
type Dispatcher struct {
	sender            Sender
	dedup             inbox.Deduplicator
	asker             Asker
	escalator         Escalator
	notifier          escalation.Notifier
	transcriber       ai.Transcriber
	transcribeTimeout time.Duration
	askTimeout        time.Duration
	bufferDelay       time.Duration
	buffer            *inbox.Buffer
	logger            *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithEscalation routes staff requests to notifier. A nil notifier logs alerts.
func WithEscalation(escalator Escalator, notifier escalation.Notifier) DispatcherOption {
	return func(d *Dispatcher) {
		d.escalator = escalator
		d.notifier = notifier
	}
}

// WithTranscriber reads image attachments, waiting at most timeout per image.
// A timeout below 1 uses DefaultTranscribeTimeout.
func WithTranscriber(t ai.Transcriber, timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.transcriber = t
		if timeout > 0 {
			d.transcribeTimeout = timeout
		}
	}
}

// WithBufferDelay sets the quiet period before a burst is answered.
func WithBufferDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.bufferDelay = delay
	}
}

// WithAskTimeout bounds answering one burst.
func WithAskTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.askTimeout = timeout
		}
	}
}

// WithDispatcherLogger sets a custom logger.
// Default is slog.Default().
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher. Close it to stop pending timers.
func NewDispatcher(sender Sender, dedup inbox.Deduplicator, asker Asker, opts ...DispatcherOption) (*Dispatcher, error) {
	if sender == nil {
		return nil, ErrSenderRequired
	}
	if dedup == nil {
		return nil, ErrDeduplicatorRequired
	}
	if asker == nil {
		return nil, ErrAskerRequired
	}

	d := &Dispatcher{
		sender:            sender,
		dedup:             dedup,
		asker:             asker,
		transcribeTimeout: DefaultTranscribeTimeout,
		askTimeout:        DefaultAskTimeout,
		bufferDelay:       inbox.DefaultBufferDelay,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "messenger-dispatcher")
	if d.escalator != nil && d.notifier == nil {
		d.notifier = escalation.NewLogNotifier(d.logger)
	}

	buffer, err := inbox.NewBuffer(d.flush, inbox.WithDelay(d.bufferDelay), inbox.WithBufferLogger(d.logger))
	if err != nil {
		return nil, err
	}
	d.buffer = buffer
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// HandlePayload handles every event of a webhook body. Failures are logged
// per event so one bad event does not drop the rest.
func (d *Dispatcher) HandlePayload(ctx context.Context, payload *Payload) {
	if payload == nil {
		return
	}
	for _, entry := range payload.Entry {
		for i := range entry.Messaging {
			if _, err := d.HandleEvent(ctx, &entry.Messaging[i]); err != nil {
				d.logger.Error("event failed", "sender", entry.Messaging[i].Sender.ID, "err", err)
			}
		}
	}
}

// HandleEvent processes one messaging event.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *Event) (Outcome, error) {
	if skip(event) {
		return OutcomeSkipped, nil
	}
	userID := event.Sender.ID
	msg := event.Message
	logger := d.logger.With("sender", userID, "mid", msg.MID)

	if msg.MID != "" {
		fresh, err := d.dedup.TryMark(ctx, msg.MID)
		if err != nil {
			return OutcomeSkipped, err
		}
		if !fresh {
			logger.Debug("duplicate message ignored")
			return OutcomeDuplicate, nil
		}
	}

	text := strings.TrimSpace(msg.Text)
	if d.escalator != nil && text != "" {
		result := d.escalator.Detect(ctx, text)
		if result.Escalate {
			logger.Info("escalating to staff", "direct", result.Direct, "score", result.Score)
			d.escalate(ctx, userID, text)
			return OutcomeEscalated, nil
		}
	}

	if transcript := d.transcribe(ctx, logger, msg.ImageURLs()); transcript != "" {
		if text == "" {
			text = transcript
		} else {
			text = text + "\n" + transcript
		}
	}
	if text == "" {
		return OutcomeSkipped, nil
	}

	if err := d.buffer.Enqueue(userID, text); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeBuffered, nil
}

func skip(event *Event) bool {
	if event == nil || event.Postback != nil || event.Read != nil || event.Delivery != nil {
		return true
	}
	msg := event.Message
	if msg == nil || msg.IsEcho || event.Sender.ID == "" {
		return true
	}
	return strings.TrimSpace(msg.Text) == "" && len(msg.ImageURLs()) == 0
}

func (d *Dispatcher) escalate(ctx context.Context, userID, text string) {
	if _, err := d.sender.SendText(ctx, userID, EscalationReply); err != nil {
		d.logger.Error("failed to acknowledge escalation", "sender", userID, "err", err)
	}
	d.buffer.Discard(userID)

	received := time.Now()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		alert := escalation.Alert{
			UserID:          userID,
			UserDisplayName: d.sender.DisplayName(d.ctx, userID),
			Timestamp:       received,
			MessageText:     text,
		}
		if err := d.notifier.Notify(d.ctx, alert); err != nil {
			d.logger.Error("failed to notify staff", "sender", userID, "err", err)
		}
	}()
}

// transcribe reads each image, dropping any that fail or take too long.
func (d *Dispatcher) transcribe(ctx context.Context, logger *slog.Logger, urls []string) string {
	if d.transcriber == nil || len(urls) == 0 {
		return ""
	}
	var parts []string
	for _, url := range urls {
		tctx, cancel := context.WithTimeout(ctx, d.transcribeTimeout)
		text, err := d.transcriber.TranscribeImage(tctx, url)
		cancel()
		if err != nil {
			logger.Warn("image transcription dropped", "err", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// flush answers a coalesced burst. It runs on the buffer's timer goroutine.
func (d *Dispatcher) flush(userID, text string) {
	ctx, cancel := context.WithTimeout(d.ctx, d.askTimeout)
	defer cancel()

	reply := ErrorReply
	answer, err := d.asker.AskOrLatest(ctx, chat.Question{
		SessionID: SessionPrefix + userID,
		UserID:    userID,
		Text:      text,
	})
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		d.logger.Warn("no corpus available", "sender", userID)
		reply = UnavailableReply
	case err != nil:
		d.logger.Error("failed to answer", "sender", userID, "err", err)
	case strings.TrimSpace(answer.Text) != "":
		reply = answer.Text
	}

	if _, err := d.sender.SendText(ctx, userID, reply); err != nil {
		d.logger.Error("failed to send reply", "sender", userID, "err", err)
	}
}

// Flush answers userID's pending burst now. It reports whether anything
// was pending.
func (d *Dispatcher) Flush(userID string) bool {
	return d.buffer.Flush(userID)
}

// Close drops pending bursts and waits for bursts already being answered and
// for in-flight alerts. Their context is cancelled only after they return.
func (d *Dispatcher) Close() {
	d.buffer.Stop()
	d.wg.Wait()
	d.cancel()
}
