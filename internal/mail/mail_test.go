package mail

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"identity/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts one session without STARTTLS or AUTH and returns the DATA payload.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
		reply := func(s string) {
			_, _ = rw.WriteString(s + "\r\n")
			_ = rw.Flush()
		}
		reply("220 fake ESMTP")
		for {
			line, err := rw.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 ok")
			case cmd == "DATA":
				reply("354 go ahead")
				var body strings.Builder
				for {
					l, err := rw.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 unsupported")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, out
}

func TestSMTPMailerSendsPlainTextMessage(t *testing.T) {
	host, port, data := fakeSMTP(t)
	m := NewSMTPMailer(SMTPConfig{Host: host, Port: port, From: "noreply@example.com", Timeout: 5 * time.Second})

	err := m.Send(context.Background(), "alice@example.com", "Verify your Email", "line one\nhttp://x/api/auth/verify-email/abc")
	require.NoError(t, err)

	select {
	case msg := <-data:
		assert.Contains(t, msg, "To: alice@example.com\r\n")
		assert.Contains(t, msg, "Subject: Verify your Email\r\n")
		assert.Contains(t, msg, "line one\r\nhttp://x/api/auth/verify-email/abc")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPMailerWrapsFailuresAsDeliveryErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "noreply@example.com", Timeout: time.Second})
	err = m.Send(context.Background(), "alice@example.com", "Password Reset", "body")
	require.ErrorIs(t, err, domain.ErrDelivery)

	err = m.Send(context.Background(), "alice@example.com\r\nBcc: x@example.com", "Password Reset", "body")
	require.ErrorIs(t, err, domain.ErrDelivery)
	assert.Contains(t, err.Error(), "header injection")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), "bob@example.com", "Password Reset", "link"))
	assert.Contains(t, buf.String(), "bob@example.com")

	require.ErrorIs(t, m.Send(context.Background(), "", "Password Reset", "link"), domain.ErrDelivery)
}
