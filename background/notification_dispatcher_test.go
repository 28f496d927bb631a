package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"samsariya-backend/model"
	"samsariya-backend/service/interfaces"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeNotificationStore struct {
	pending []*model.Notification
	sent    []primitive.ObjectID
	failed  map[primitive.ObjectID]string
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{failed: make(map[primitive.ObjectID]string)}
}

func (s *fakeNotificationStore) Insert(ctx context.Context, n *model.Notification) error {
	id := primitive.NewObjectID()
	n.ID = &id
	s.pending = append(s.pending, n)
	return nil
}

func (s *fakeNotificationStore) FetchPending(ctx context.Context) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range s.pending {
		if !n.Sent {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	for _, n := range s.pending {
		if n.ID != nil && *n.ID == id {
			n.Sent = true
		}
	}
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeNotificationStore) MarkFailed(ctx context.Context, id primitive.ObjectID, deliveryErr error) error {
	s.failed[id] = deliveryErr.Error()
	return nil
}

// flakyMessenger fails for the customer IDs listed in failFor.
type flakyMessenger struct {
	sent    []string
	edited  []string
	failFor map[string]bool
}

func (m *flakyMessenger) Send(ctx context.Context, customerID string, text string) error {
	if m.failFor[customerID] {
		return errors.New("push rejected")
	}
	m.sent = append(m.sent, customerID)
	return nil
}

func (m *flakyMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	if m.failFor[customerID] {
		return errors.New("edit rejected")
	}
	m.edited = append(m.edited, customerID)
	return nil
}

func pendingNotification(store *fakeNotificationStore, customerID string, edit bool) *model.Notification {
	n := &model.Notification{
		CustomerID:  customerID,
		Message:     "msg for " + customerID,
		EditMessage: edit,
		CreatedAt:   time.Now().UTC(),
	}
	if edit {
		// Edits always reference the order whose status message they amend.
		orderID := primitive.NewObjectID()
		n.OrderID = &orderID
	}
	_ = store.Insert(context.Background(), n)
	return n
}

func TestDispatcherDeliversPendingAndSkipsFailed(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &flakyMessenger{failFor: map[string]bool{"user2": true}}

	pendingNotification(store, "user1", false)
	pendingNotification(store, "user2", false)
	pendingNotification(store, "user3", false)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.sent) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(messenger.sent))
	}
	if len(store.sent) != 2 {
		t.Fatalf("got %d rows marked sent, want 2", len(store.sent))
	}
	if len(store.failed) != 1 {
		t.Fatalf("got %d rows marked failed, want 1", len(store.failed))
	}

	// One delivery failing must not stop the rest of the pass.
	for _, id := range messenger.sent {
		if id == "user2" {
			t.Error("the failing customer must not appear among deliveries")
		}
	}
}

func TestDispatcherRetriesFailedOnNextPass(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &flakyMessenger{failFor: map[string]bool{"user2": true}}

	pendingNotification(store, "user1", false)
	pendingNotification(store, "user2", false)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.sent) != 1 {
		t.Fatalf("got %d deliveries on the first pass, want 1", len(messenger.sent))
	}

	// The push problem clears; the failed row is re-offered and delivered.
	messenger.failFor = map[string]bool{}
	d.runOnce(context.Background())

	if len(messenger.sent) != 2 {
		t.Fatalf("got %d deliveries after the retry pass, want 2", len(messenger.sent))
	}
	remaining, _ := store.FetchPending(context.Background())
	if len(remaining) != 0 {
		t.Errorf("got %d rows still pending, want 0", len(remaining))
	}
}

func TestDispatcherUsesEditWhenRequested(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &flakyMessenger{failFor: map[string]bool{}}

	pendingNotification(store, "user1", true)
	pendingNotification(store, "user2", false)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.edited) != 1 || messenger.edited[0] != "user1" {
		t.Errorf("edit deliveries = %v, want exactly [user1]", messenger.edited)
	}
	if len(messenger.sent) != 1 || messenger.sent[0] != "user2" {
		t.Errorf("push deliveries = %v, want exactly [user2]", messenger.sent)
	}
}

// editlessMessenger mimics platforms without message editing.
type editlessMessenger struct {
	sent []string
}

func (m *editlessMessenger) Send(ctx context.Context, customerID string, text string) error {
	m.sent = append(m.sent, customerID)
	return nil
}

func (m *editlessMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	return interfaces.ErrEditNotSupported
}

func TestDispatcherFallsBackToSendWhenEditUnsupported(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &editlessMessenger{}

	pendingNotification(store, "user1", true)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.sent) != 1 {
		t.Fatalf("got %d pushes, want 1 fallback push", len(messenger.sent))
	}
	remaining, _ := store.FetchPending(context.Background())
	if len(remaining) != 0 {
		t.Errorf("the fallback delivery should mark the row sent, %d still pending", len(remaining))
	}
}

// brokenEditMessenger fails edits with a transient error while pushes work.
type brokenEditMessenger struct {
	sent []string
}

func (m *brokenEditMessenger) Send(ctx context.Context, customerID string, text string) error {
	m.sent = append(m.sent, customerID)
	return nil
}

func (m *brokenEditMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	return errors.New("edit temporarily rejected")
}

func TestDispatcherFallsBackToSendOnEditError(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &brokenEditMessenger{}

	pendingNotification(store, "user1", true)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.sent) != 1 {
		t.Fatalf("got %d pushes, want 1 fallback push after the failed edit", len(messenger.sent))
	}
	if len(store.failed) != 0 {
		t.Errorf("the row must not be marked failed when the fallback push lands: %v", store.failed)
	}
	remaining, _ := store.FetchPending(context.Background())
	if len(remaining) != 0 {
		t.Errorf("got %d rows still pending, want 0", len(remaining))
	}
}

func TestDispatcherEditWithoutOrderUsesPlainPush(t *testing.T) {
	store := newFakeNotificationStore()
	messenger := &flakyMessenger{failFor: map[string]bool{}}

	n := &model.Notification{
		CustomerID:  "user1",
		Message:     "msg for user1",
		EditMessage: true, // no associated order, so nothing to amend
		CreatedAt:   time.Now().UTC(),
	}
	_ = store.Insert(context.Background(), n)

	d := NewNotificationDispatcher(zerolog.Nop(), store, messenger, nil, nil)
	d.runOnce(context.Background())

	if len(messenger.edited) != 0 {
		t.Errorf("edit deliveries = %v, want none without an order reference", messenger.edited)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("got %d pushes, want 1", len(messenger.sent))
	}
}
