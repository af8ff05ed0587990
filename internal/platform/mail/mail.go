// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional email over SMTP.

The only message the account service sends is the password reset code. When
no SMTP host or credentials are configured the client is disabled: sends are
logged and dropped so local development works without a mail server.
*/
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/url"
	"strconv"
	"time"

	"github.com/dajohi/goemail"
)

// Config holds the SMTP settings needed by [NewClient].
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	CC         string
	SkipVerify bool
}

// sender is the subset of *goemail.SMTP used here.
type sender interface {
	Send(msg *goemail.Message) error
}

// Client sends account emails from a fixed sender address.
type Client struct {
	smtp     sender
	fromName string
	fromAddr string
	cc       string
	disabled bool
	logger   *slog.Logger
}

// NewClient builds an SMTP client. Missing host or credentials yield a
// disabled client rather than an error.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		logger.Warn("mail_disabled", slog.String("reason", "smtp host or credentials not configured"))
		return &Client{disabled: true, logger: logger}, nil
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	address, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid sender address: %w", err)
	}

	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipVerify,
	}

	smtp, err := goemail.NewSMTP(smtpURL(cfg).String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("mail: failed to configure smtp for %s: %w", cfg.Host, err)
	}

	logger.Info("mail_enabled",
		slog.String("host", cfg.Host),
		slog.String("scheme", smtpURL(cfg).Scheme),
		slog.Int("port", cfg.Port),
		slog.String("from", address.Address),
	)

	return &Client{
		smtp:     smtp,
		fromName: address.Name,
		fromAddr: address.Address,
		cc:       cfg.CC,
		logger:   logger,
	}, nil
}

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// smtpURL builds the goemail dial URL. Port 465 uses implicit TLS (smtps);
// every other port, 587 and 25 included, dials plain and upgrades with STARTTLS.
func smtpURL(cfg Config) *url.URL {
	scheme := "smtp"
	if cfg.Port == implicitTLSPort {
		scheme = "smtps"
	}
	return &url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}
}

// IsEnabled reports whether the client will actually send mail.
func (c *Client) IsEnabled() bool {
	return !c.disabled
}

// SendResetOtp emails the password reset code to recipient.
//
// goemail has no context support, so ctx is only checked before dialing.
func (c *Client) SendResetOtp(ctx context.Context, recipient, otp string) error {
	if c.disabled {
		c.logger.InfoContext(ctx, "mail_skipped_disabled", slog.String("template", "reset_otp"))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: send reset otp: %w", err)
	}

	subject, body := resetOtpMessage(otp, ResetOtpValidity)

	msg := goemail.NewMessage(c.fromAddr, subject, body)
	if c.fromName != "" {
		msg.SetName(c.fromName)
	}
	msg.AddTo(recipient)
	if c.cc != "" {
		msg.AddCC(c.cc)
	}

	if err := c.smtp.Send(msg); err != nil {
		return fmt.Errorf("mail: send reset otp: %w", err)
	}
	return nil
}

// ResetOtpValidity is the validity window quoted in the reset email.
const ResetOtpValidity = 10 * time.Minute

func resetOtpMessage(otp string, validity time.Duration) (subject, body string) {
	subject = "Password Reset OTP"
	body = fmt.Sprintf("Your OTP for password reset is: %s. It is valid for %d minutes.",
		otp, int(validity.Minutes()))
	return subject, body
}
