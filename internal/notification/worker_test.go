package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"

	"bagel-preorder-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockSubs is a mock implementation of the SubscriptionStore interface.
type mockSubs struct {
	ListSubscriptionsFunc  func(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscriptionFunc func(ctx context.Context, endpoint string) error
}

func (m *mockSubs) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	return m.ListSubscriptionsFunc(ctx)
}

func (m *mockSubs) DeleteSubscription(ctx context.Context, endpoint string) error {
	return m.DeleteSubscriptionFunc(ctx, endpoint)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func testOrder() model.Order {
	return model.Order{ID: 12, Item: model.ItemBagel, Day: model.Saturday, Slot: "10:00-10:30", Name: "Ada"}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, 1, &mockSubs{}, &webpush.Options{})

	assert.True(t, wp.Dispatch(testOrder()))
	// The queue holds one alert and nobody is consuming it.
	assert.False(t, wp.Dispatch(testOrder()))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(12), job.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestAlertText(t *testing.T) {
	assert.Equal(t, "New order #12: bagel for Saturday 10:00–10:30 (Ada)", AlertText(testOrder()))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("sends an alert to every subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		subs := &mockSubs{
			ListSubscriptionsFunc: func(ctx context.Context) ([]model.PushSubscription, error) {
				return []model.PushSubscription{
					{Endpoint: "https://example.com/push/1", P256DH: "k1", Auth: "a1"},
					{Endpoint: "https://example.com/push/2", P256DH: "k2", Auth: "a2"},
				}, nil
			},
		}
		wp := NewWorkerPool(1, 4, subs, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, AlertText(testOrder()), string(payload))
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(testOrder())
		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/push/1", "https://example.com/push/2"}, endpoints)
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		deleted := make(chan string, 1)
		subs := &mockSubs{
			ListSubscriptionsFunc: func(ctx context.Context) ([]model.PushSubscription, error) {
				return []model.PushSubscription{{Endpoint: "https://example.com/expired"}}, nil
			},
			DeleteSubscriptionFunc: func(ctx context.Context, endpoint string) error {
				deleted <- endpoint
				return nil
			},
		}
		wp := NewWorkerPool(1, 4, subs, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(testOrder())
		select {
		case endpoint := <-deleted:
			assert.Equal(t, "https://example.com/expired", endpoint)
		case <-time.After(1 * time.Second):
			t.Fatal("expired subscription was not deleted")
		}
	})

	t.Run("subscription lookup failure sends nothing", func(t *testing.T) {
		listed := make(chan struct{}, 1)
		subs := &mockSubs{
			ListSubscriptionsFunc: func(ctx context.Context) ([]model.PushSubscription, error) {
				listed <- struct{}{}
				return nil, errors.New("store unavailable")
			},
		}
		wp := NewWorkerPool(1, 4, subs, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Error("sender must not be called")
				return response(http.StatusCreated), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(testOrder())
		select {
		case <-listed:
		case <-time.After(1 * time.Second):
			t.Fatal("worker did not process the alert")
		}
		// Give the worker a moment to finish the job.
		time.Sleep(50 * time.Millisecond)
	})
}
