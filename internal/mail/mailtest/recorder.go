// Package mailtest provides an in-memory mailer for tests.
package mailtest

import (
	"context"
	"regexp"
	"sync"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Recorder keeps every message it is asked to send. Set Err to make Send fail.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.msgs = append(r.msgs, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

var linkToken = regexp.MustCompile(`/api/auth/(?:verify-email|reset-password)/([0-9a-f]+)`)

// Token extracts the token from the link in the last message.
func (r *Recorder) Token() string {
	m, ok := r.Last()
	if !ok {
		return ""
	}
	if sub := linkToken.FindStringSubmatch(m.Body); len(sub) == 2 {
		return sub[1]
	}
	return ""
}
