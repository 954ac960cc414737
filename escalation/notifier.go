package escalation

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// AlertSubject is the subject line of escalation mails.
const AlertSubject = "แจ้งเตือนจากแชทบอท: ติดต่อเจ้าหน้าที่"

// Alert is what staff are told when a user asks for them.
type Alert struct {
	UserID          string
	UserDisplayName string
	Timestamp       time.Time
	MessageText     string
}

// Body renders the alert as plain text.
func (a Alert) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ผู้ใช้: %s\n", a.UserDisplayName)
	fmt.Fprintf(&b, "เวลา: %s\n", a.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "ข้อความ: %s\n", a.MessageText)
	return b.String()
}

// Notifier delivers escalation alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a logger. It is used when no mail server
// is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "escalation-notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	n.logger.Warn("user asked for staff",
		"user", alert.UserID,
		"name", alert.UserDisplayName,
		"at", alert.Timestamp,
		"message", alert.MessageText)
	return nil
}

// SMTPConfig addresses a mail server that supports STARTTLS.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMTPNotifier mails alerts to staff.
type SMTPNotifier struct {
	cfg     SMTPConfig
	timeout time.Duration
	logger  *slog.Logger
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates a notifier for cfg. From defaults to Username
// and To defaults to From.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) (*SMTPNotifier, error) {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if len(cfg.To) == 0 && cfg.From != "" {
		cfg.To = []string{cfg.From}
	}
	if len(cfg.To) == 0 {
		return nil, ErrNoRecipients
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{
		cfg:     cfg,
		timeout: 30 * time.Second,
		logger:  logger.With("component", "escalation-notifier"),
	}, nil
}

// Message renders the full RFC 5322 message for alert.
func (n *SMTPNotifier) Message(alert Alert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", AlertSubject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(alert.Body(), "\n", "\r\n"))
	return []byte(b.String())
}

func (n *SMTPNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := n.send(ctx, n.Message(alert)); err != nil {
		n.logger.Error("alert mail failed", "user", alert.UserID, "err", err)
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	n.logger.Info("alert mailed", "user", alert.UserID, "recipients", len(n.cfg.To))
	return nil
}

func (n *SMTPNotifier) send(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	dialer := net.Dialer{Timeout: n.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(n.timeout))
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return err
	}
	for _, to := range n.cfg.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
