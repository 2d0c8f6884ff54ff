package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

func TestSend_PassesMessageToRelay(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025, From: "noreply@investwest.test", FromName: "Invest West"}, zap.NewNop())

	var got email.Message
	m.deliver = func(_ context.Context, msg email.Message) error {
		got = msg
		return nil
	}

	e := BuildDecisionEmail(DecisionEmailData{
		SiteName:    "Invest West",
		ProjectName: "Solar Roofs",
		Headline:    "Your pitch is now live",
		Message:     "Investors can now see your pitch.",
	})
	e.To = "issuer@example.com"

	if err := m.Send(context.Background(), e); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(got.To) != 1 || got.To[0] != "issuer@example.com" {
		t.Errorf("to: got %v", got.To)
	}
	if got.Subject != e.Subject {
		t.Errorf("subject: got %q", got.Subject)
	}
	if !strings.Contains(got.TextBody, "Solar Roofs") || !strings.Contains(got.HTMLBody, "Your pitch is now live") {
		t.Error("both bodies should be passed through")
	}
}

func TestSend_NoRecipient(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025}, zap.NewNop())
	m.deliver = func(context.Context, email.Message) error {
		t.Fatal("relay called without a recipient")
		return nil
	}
	if err := m.Send(context.Background(), Email{Subject: "x"}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}
}

func TestSend_WrapsTransportError(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025}, zap.NewNop())
	boom := errors.New("connection refused")
	m.deliver = func(context.Context, email.Message) error { return boom }

	if err := m.Send(context.Background(), Email{To: "a@example.com", TextBody: "hi"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
}

func TestSend_HonoursContext(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025}, zap.NewNop())
	m.deliver = func(ctx context.Context, _ email.Message) error { return ctx.Err() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, Email{To: "a@example.com", TextBody: "hi"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuildInvitationEmail(t *testing.T) {
	e := BuildInvitationEmail(InvitationEmailData{
		SiteName:  "Invest West",
		GroupName: "Bristol Angels",
		FirstName: "Sam",
		Role:      "investor",
		AcceptURL: "https://investwest.test/invitations/abc/accept?token=t",
	})
	if !strings.Contains(e.Subject, "Bristol Angels") {
		t.Errorf("subject: got %q", e.Subject)
	}
	if !strings.Contains(e.HTMLBody, "invitations/abc/accept") || !strings.Contains(e.TextBody, "Hi Sam") {
		t.Error("bodies should carry the accept link and greeting")
	}
}
