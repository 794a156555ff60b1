package netutil

import (
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "ipv4 with port", input: "192.0.2.4:8080", expected: "192.0.2.4", ok: true},
		{name: "ipv6 with port", input: "[2001:db8::1]:443", expected: "2001:db8::1", ok: true},
		{name: "ipv6 textual port", input: "[::1]:port", expected: "::1", ok: true},
		{name: "plain ipv4 padded", input: " 203.0.113.9 ", expected: "203.0.113.9", ok: true},
		{name: "ipv6 zone dropped", input: "fe80::1%eth0", expected: "fe80::1", ok: true},
		{name: "garbage", input: "not-an-ip", expected: "not-an-ip", ok: false},
		{name: "empty", input: "", expected: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeIP(tc.input)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestClientIPIgnoresForwardingUnlessTrusted(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	if got := ClientIP(r, false); got != "10.0.0.1" {
		t.Fatalf("untrusted: expected remote addr, got %q", got)
	}
	if got := ClientIP(r, true); got != "198.51.100.7" {
		t.Fatalf("trusted: expected first forwarded hop, got %q", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.8")
	if got := ClientIP(r, true); got != "198.51.100.8" {
		t.Fatalf("trusted: expected X-Real-IP, got %q", got)
	}
}

func TestTruncateUserAgent(t *testing.T) {
	long := strings.Repeat("é", MaxUserAgentLength+10)
	truncated := TruncateUserAgent(long)
	if n := utf8.RuneCountInString(truncated); n != MaxUserAgentLength {
		t.Fatalf("expected %d runes, got %d", MaxUserAgentLength, n)
	}
	if got := TruncateUserAgent("curl/8"); got != "curl/8" {
		t.Fatalf("short agent changed: %q", got)
	}
}
