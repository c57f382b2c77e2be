package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"mentorship-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore resolves a user's browser push subscriptions.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
}

type pushJob struct {
	userID string
	event  Event
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan pushJob
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, st SubscriptionStore, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan pushJob, queueSize),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("push worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.sendNotificationsForUser(ctx, job)
		case <-ctx.Done():
			wp.log.Debug("push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Deliver queues a push for the channel's user. It drops the job when the
// queue is full.
func (wp *WorkerPool) Deliver(channelKey string, ev Event) {
	userID, ok := ChannelUser(channelKey)
	if !ok {
		return
	}
	select {
	case wp.jobs <- pushJob{userID: userID, event: ev}:
	default:
		wp.log.Warn("push queue full, dropping notification",
			zap.String("userID", userID),
			zap.String("requestID", ev.RequestID))
	}
}

func (wp *WorkerPool) sendNotificationsForUser(ctx context.Context, job pushJob) {
	subscriptions, err := wp.store.ListPushSubscriptions(ctx, job.userID)
	if err != nil {
		wp.log.Error("failed to fetch push subscriptions", zap.String("userID", job.userID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title: pushTitle(job.event),
		Event: job.event,
	})
	if err != nil {
		wp.log.Error("failed to encode push payload", zap.Error(err))
		return
	}

	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

type pushPayload struct {
	Title string `json:"title"`
	Event Event  `json:"event"`
}

func pushTitle(ev Event) string {
	switch ev.Type {
	case EventCreated:
		return "New mentorship request"
	case EventAccepted:
		return "Your session was accepted"
	case EventRejected:
		return "Your request was declined"
	case EventCancelled:
		return "A session was cancelled"
	case EventCompleted:
		return "Session completed"
	}
	return fmt.Sprintf("Request %s updated", ev.RequestID)
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send push notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("push subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeletePushSubscription(ctx, sub.UserID, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
