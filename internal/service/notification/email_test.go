package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository/memory"
	"github.com/chung140204/TKPM-BTL-sub000/pkg/clients/mailer"
)

type capturingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail bool
}

func (m *capturingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestEmailQueueDelivers(t *testing.T) {
	store := memory.New()
	userID := store.PutUser(models.User{Name: "An", Email: "an@example.com"})
	m := &capturingMailer{}

	q := NewEmailQueue(store, m, config.EmailQueueConfig{Workers: 2, QueueSize: 8, Timeout: time.Second}, observability.NewMetrics(), nil)
	q.Start()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(EmailRequest{RecipientUserID: userID, Subject: "Food expiring soon", Body: "<p>Milk</p>"}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if err := q.Enqueue(EmailRequest{RecipientUserID: primitive.NewObjectID(), Subject: "lost"}); err != nil {
		t.Fatalf("Enqueue() unknown user error = %v", err)
	}
	q.Stop()

	if len(m.sent) != 3 {
		t.Fatalf("sent %d emails, want 3", len(m.sent))
	}
	if m.sent[0].To != "an@example.com" {
		t.Errorf("To = %q", m.sent[0].To)
	}

	if err := q.Enqueue(EmailRequest{RecipientUserID: userID}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue() after Stop error = %v, want ErrQueueClosed", err)
	}
	q.Stop()
}

func TestEmailQueueFullDoesNotBlock(t *testing.T) {
	store := memory.New()
	q := NewEmailQueue(store, &capturingMailer{}, config.EmailQueueConfig{Workers: 1, QueueSize: 1}, nil, nil)

	// Workers are not started, so the second request has nowhere to go.
	if err := q.Enqueue(EmailRequest{}); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}
	if err := q.Enqueue(EmailRequest{}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Enqueue() error = %v, want ErrQueueFull", err)
	}
}

func TestEmailQueueMailerFailure(t *testing.T) {
	store := memory.New()
	userID := store.PutUser(models.User{Email: "an@example.com"})
	m := &capturingMailer{fail: true}

	q := NewEmailQueue(store, m, config.EmailQueueConfig{Workers: 1, QueueSize: 2, Timeout: time.Second}, nil, nil)
	q.Start()
	if err := q.Enqueue(EmailRequest{RecipientUserID: userID, Subject: "x"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	q.Stop()

	if len(m.sent) != 0 {
		t.Fatalf("sent %d emails through a failing mailer", len(m.sent))
	}
}
