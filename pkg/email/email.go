// Package email sends transactional e-mail through Postmark.
// A memory sender is provided for development and tests.
package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/mrz1836/postmark"
)

var (
	ErrFailedToSend  = errors.New("email: failed to send")
	ErrInvalidConfig = errors.New("email: invalid configuration")
	ErrInvalidParams = errors.New("email: invalid send parameters")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Config describes Postmark settings loadable from the environment. The
// tokens are optional so development environments can run without sending.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`
}

// Sender sends a single transactional e-mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound e-mail.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

// Validate checks the message fields before any provider call.
func (m Message) Validate() error {
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient address %q", ErrInvalidParams, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

type postmarkSender struct {
	client *postmark.Client
	cfg    Config
}

// NewPostmarkSender creates a Postmark-backed sender. All config fields are
// required at this point; use NewMemorySender when sending is disabled.
func NewPostmarkSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: sender email %q", ErrInvalidConfig, cfg.SenderEmail)
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: support email %q", ErrInvalidConfig, cfg.SupportEmail)
	}
	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

func (s *postmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.SenderEmail,
		ReplyTo:    s.cfg.SupportEmail,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

// MemorySender records messages instead of sending them. Safe for
// concurrent use.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message
}

// NewMemorySender creates an in-memory sender for development and tests.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
