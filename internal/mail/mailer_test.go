package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestSMTPSenderSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender("smtp.example.com", 2525, "user", "pw", "SnapScape <no-reply@example.com>")
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		if a == nil {
			t.Fatal("auth not configured")
		}
		return nil
	}
	if err := s.Send("ana@example.com", "Approved", "line1\nline2"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:2525" || gotFrom != "no-reply@example.com" || len(gotTo) != 1 {
		t.Fatalf("addr=%s from=%s to=%v", gotAddr, gotFrom, gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Approved\r\n") || !strings.HasSuffix(msg, "line1\r\nline2") {
		t.Fatalf("message = %q", msg)
	}
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender("h", 25, "", "", "a@b")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }
	if err := s.Send("a@b\r\nBcc: x@y", "s", "b"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSMTPSenderWrapsError(t *testing.T) {
	boom := errors.New("relay down")
	s := NewSMTPSender("h", 25, "", "", "a@b")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	if err := s.Send("c@d", "s", "b"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
