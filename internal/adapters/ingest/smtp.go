package ingest

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-msg-triage/internal/core"
	"go.uber.org/zap"
)

// Server accepts mail over SMTP and enqueues it for triage. Delivery is
// always accepted; scoring happens asynchronously in the pipeline, so a
// slow or failing scorer never blocks the SMTP conversation.
type Server struct {
	store      core.MessageStore
	logger     *zap.Logger
	listenAddr string
	domain     string
	enabled    bool
	server     *smtp.Server
}

// NewServer creates a new SMTP ingest server
func NewServer(store core.MessageStore, logger *zap.Logger, listenAddr, domain string, enabled bool) *Server {
	return &Server{
		store:      store,
		logger:     logger,
		listenAddr: listenAddr,
		domain:     domain,
		enabled:    enabled,
	}
}

// Start starts listening for SMTP connections. No-op when disabled.
func (s *Server) Start() error {
	if !s.enabled {
		s.logger.Info("SMTP ingest disabled")
		return nil
	}

	s.server = smtp.NewServer(&smtpBackend{ingest: s})
	s.server.Addr = s.listenAddr
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = 10 * 1024 * 1024 // 10MB
	s.server.MaxRecipients = 50
	s.server.AllowInsecureAuth = true

	s.logger.Info("SMTP ingest starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				s.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingest *Server
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{ingest: b.ingest}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingest *Server
	sender string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
}

// AuthPlain handles PLAIN authentication (not needed for ingest)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt accepts any recipient; routing is not this server's concern
func (s *smtpSession) Rcpt(_ string, _ *smtp.RcptOptions) error {
	return nil
}

// Data reads the message, extracts its text and enqueues it
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.ingest.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.ingest.logger.Error("Failed to parse mail message", zap.Error(err))
		return err
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.ingest.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	content := strings.TrimSpace(textContent)
	if subject := msg.Header.Get("Subject"); subject != "" {
		decoded, err := decodeEncodedHeader(subject)
		if err != nil {
			decoded = subject
		}
		content = decoded + "\n\n" + content
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.ingest.store.Enqueue(ctx, content, s.sender)
	if err != nil {
		s.ingest.logger.Error("Failed to enqueue message",
			zap.String("sender", s.sender),
			zap.Error(err))
		return err
	}

	s.ingest.logger.Info("Enqueued message for triage",
		zap.Int64("message_id", id),
		zap.String("sender", s.sender),
		zap.Int("size", len(content)))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
