// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"
)

// EmailConfig holds the SMTP settings for the email channel.
type EmailConfig struct {
	Host     string `koanf:"host" json:"host"`
	Port     int    `koanf:"port" json:"port" validate:"omitempty,gt=0,lte=65535"`
	Username string `koanf:"username" json:"username"`
	Password string `koanf:"password" json:"password"`
	From     string `koanf:"from" json:"from" validate:"required_with=Host,omitempty,email"`
	To       string `koanf:"to" json:"to" validate:"required_with=Host,omitempty,email"`

	// ImplicitTLS wraps the connection in TLS from the first byte
	// (SMTPS, typically port 465). Otherwise STARTTLS is negotiated.
	ImplicitTLS bool `koanf:"implicit_tls" json:"implicit_tls"`
}

// Enabled reports whether the config carries a server.
func (c EmailConfig) Enabled() bool { return c.Host != "" }

// Email sends alerts over SMTP with the evidence snapshot attached.
type Email struct {
	cfg     EmailConfig
	timeout time.Duration
}

// NewEmail creates the email channel.
func NewEmail(cfg EmailConfig) *Email {
	if cfg.Port == 0 {
		if cfg.ImplicitTLS {
			cfg.Port = 465
		} else {
			cfg.Port = 587
		}
	}
	return &Email{cfg: cfg, timeout: 30 * time.Second}
}

// Name returns the channel identifier.
func (e *Email) Name() string { return "email" }

// Send delivers the alert email.
func (e *Email) Send(ctx context.Context, msg Message) error {
	body := e.buildMessage(msg)
	return e.sendSMTP(ctx, body)
}

// buildMessage renders the RFC 5322 message, multipart/mixed when a
// snapshot is attached.
func (e *Email) buildMessage(msg Message) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", e.cfg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", e.cfg.To))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject()))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", msg.Record.Timestamp.UTC().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Snapshot) == 0 {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body())
		return b.String()
	}

	boundary := fmt.Sprintf("boundary_%d", msg.Record.Timestamp.UnixNano())
	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", boundary))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body())
	b.WriteString("\r\n")

	filename := "alert.jpg"
	if msg.Record.SnapshotPath != "" {
		filename = filepath.Base(msg.Record.SnapshotPath)
	}
	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: image/jpeg\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", filename))
	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(msg.Snapshot)))
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return b.String()
}

// wrapBase64 folds encoded data to 76-character lines per RFC 2045.
func wrapBase64(s string) string {
	const lineLen = 76
	var b strings.Builder
	for len(s) > lineLen {
		b.WriteString(s[:lineLen])
		b.WriteString("\r\n")
		s = s[lineLen:]
	}
	b.WriteString(s)
	return b.String()
}

func (e *Email) sendSMTP(ctx context.Context, msg string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	dialer := &net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	tlsConfig := &tls.Config{
		ServerName: e.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
	if e.cfg.ImplicitTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if !e.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("start TLS: %w", err)
			}
		}
	}

	if e.cfg.Username != "" && e.cfg.Password != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(e.cfg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	// Quit failures after a delivered message are not send failures.
	_ = client.Quit()
	return nil
}
