package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
)

func TestRelayClientSend(t *testing.T) {
	var got relayRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewRelayClient(config.MailConfig{RelayURL: srv.URL + "/", RelayToken: "secret", From: "fridge@example.com"})
	err := c.Send(context.Background(), Message{To: "an@example.com", Subject: "Food expiring soon", Body: "<p>Milk</p>"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.To != "an@example.com" || got.From != "fridge@example.com" || got.HTML != "<p>Milk</p>" {
		t.Fatalf("relay body = %+v", got)
	}
	if auth != "Bearer secret" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestRelayClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"mailbox unavailable","code":550}}`))
	}))
	defer srv.Close()

	c := NewRelayClient(config.MailConfig{RelayURL: srv.URL})
	err := c.Send(context.Background(), Message{To: "an@example.com"})
	if err == nil {
		t.Fatal("Send() error = nil, want relay error")
	}
	if want := "mail relay error: code=550, message=mailbox unavailable"; err.Error() != want {
		t.Fatalf("Send() error = %q, want %q", err, want)
	}
}

func TestSendRequiresRecipient(t *testing.T) {
	mailers := map[string]Mailer{
		"log":   NewLogMailer(nil),
		"relay": NewRelayClient(config.MailConfig{RelayURL: "http://127.0.0.1:1"}),
		"smtp":  NewSMTPMailer(config.MailConfig{SMTPHost: "127.0.0.1", SMTPPort: 1}),
	}
	for name, m := range mailers {
		if err := m.Send(context.Background(), Message{Subject: "x"}); !errors.Is(err, ErrNoRecipient) {
			t.Errorf("%s Send() error = %v, want ErrNoRecipient", name, err)
		}
	}
}

func TestNewSelectsTransport(t *testing.T) {
	if _, ok := New(config.MailConfig{Driver: config.MailSMTP, SMTPHost: "smtp.local", SMTPPort: 25}, nil).(*SMTPMailer); !ok {
		t.Error("smtp driver did not build an SMTPMailer")
	}
	if _, ok := New(config.MailConfig{Driver: config.MailRelay, RelayURL: "http://relay"}, nil).(*RelayClient); !ok {
		t.Error("relay driver did not build a RelayClient")
	}
	if _, ok := New(config.MailConfig{Driver: config.MailLog}, nil).(*LogMailer); !ok {
		t.Error("log driver did not build a LogMailer")
	}
}
