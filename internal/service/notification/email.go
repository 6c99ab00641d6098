package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/pkg/clients/mailer"
)

// ErrQueueFull is returned by Enqueue when the workers are saturated.
var ErrQueueFull = errors.New("email queue is full")

// ErrQueueClosed is returned by Enqueue after Stop.
var ErrQueueClosed = errors.New("email queue is closed")

// EmailRequest asks for one email to a user.
type EmailRequest struct {
	RecipientUserID primitive.ObjectID
	Subject         string
	Body            string
}

// Emailer accepts email requests without waiting for delivery.
type Emailer interface {
	Enqueue(req EmailRequest) error
}

// EmailQueue is a bounded worker pool in front of a mailer.Mailer.
type EmailQueue struct {
	users   repository.HouseholdStore
	mailer  mailer.Mailer
	jobs    chan EmailRequest
	workers int
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEmailQueue builds a queue; call Start before enqueueing.
func NewEmailQueue(users repository.HouseholdStore, m mailer.Mailer, cfg config.EmailQueueConfig, metrics *observability.Metrics, logger *zap.Logger) *EmailQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &EmailQueue{
		users:   users,
		mailer:  m,
		jobs:    make(chan EmailRequest, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the workers.
func (q *EmailQueue) Start() {
	q.logger.Info("starting email workers", zap.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for req := range q.jobs {
				q.send(req)
			}
		}()
	}
}

// Stop drains queued requests and waits for the workers.
func (q *EmailQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.logger.Info("stopping email workers")
	q.wg.Wait()
}

// Enqueue hands the request to a worker without blocking.
func (q *EmailQueue) Enqueue(req EmailRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *EmailQueue) send(req EmailRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	user, err := q.users.FindUser(ctx, req.RecipientUserID)
	if err != nil {
		q.metrics.SideEffectFailed("email")
		q.logger.Warn("email recipient lookup failed", zap.Stringer("user_id", req.RecipientUserID), zap.Error(err))
		return
	}

	msg := mailer.Message{To: user.Email, Subject: req.Subject, Body: req.Body}
	if err := q.mailer.Send(ctx, msg); err != nil {
		q.metrics.SideEffectFailed("email")
		q.logger.Warn("email delivery failed", zap.Stringer("user_id", req.RecipientUserID), zap.Error(err))
		return
	}
	q.metrics.EmailSent()
}
