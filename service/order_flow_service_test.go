package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"samsariya-backend/model"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCartStore struct {
	mu    sync.Mutex
	carts map[string]*model.Cart
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]*model.Cart)}
}

func (s *fakeCartStore) Save(ctx context.Context, customerID string, cart *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = cart
	return nil
}

func (s *fakeCartStore) Load(ctx context.Context, customerID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[customerID], nil
}

func (s *fakeCartStore) Delete(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}

type fakeOrderStore struct {
	orders []*model.Order
}

func (s *fakeOrderStore) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	id := primitive.NewObjectID()
	order.ID = &id
	s.orders = append(s.orders, order)
	return order, nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	for _, o := range s.orders {
		if o.ID != nil && *o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (s *fakeOrderStore) List(ctx context.Context, limit int64) ([]*model.Order, error) {
	return s.orders, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus) (*model.Order, error) {
	o, _ := s.GetByID(ctx, id)
	if o != nil {
		o.Status = status
	}
	return o, nil
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []string
}

func (m *fakeMessenger) Send(ctx context.Context, customerID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	return nil
}

func (m *fakeMessenger) EditLast(ctx context.Context, customerID string, text string) error {
	return m.Send(ctx, customerID, text)
}

func (m *fakeMessenger) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1]
}

type fakeReviewStore struct {
	reviews []*model.Review
}

func (s *fakeReviewStore) Save(ctx context.Context, review *model.Review) error {
	s.reviews = append(s.reviews, review)
	return nil
}

func (s *fakeReviewStore) Recent(ctx context.Context, n int64) ([]*model.Review, error) {
	var out []*model.Review
	for i := len(s.reviews) - 1; i >= 0 && int64(len(out)) < n; i-- {
		out = append(out, s.reviews[i])
	}
	return out, nil
}

type flowFixture struct {
	flow      *OrderFlowService
	carts     *fakeCartStore
	orders    *fakeOrderStore
	messenger *fakeMessenger
	reviews   *fakeReviewStore
	clock     time.Time
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	fx := &flowFixture{
		carts:     newFakeCartStore(),
		orders:    &fakeOrderStore{},
		messenger: &fakeMessenger{},
		reviews:   &fakeReviewStore{},
		clock:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.flow = NewOrderFlowService(
		zerolog.Nop(),
		fx.carts,
		fx.orders,
		newFakeCatalog(),
		fx.messenger,
		NewDefaultTextResolver(),
		fx.reviews,
		"8600 0000 0000 0000",
	)
	fx.flow.now = func() time.Time { return fx.clock }
	return fx
}

func (fx *flowFixture) handle(input Input) {
	fx.flow.HandleInput(context.Background(), "user1", input)
}

// advanceToName walks a fresh session to the name prompt with 2 beef and a box.
func (fx *flowFixture) advanceToName() {
	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionSelectItem, "samsa_beef"))
	fx.handle(ActionInput(ActionIncItem, "samsa_beef"))
	fx.handle(ActionInput(ActionFinishItem, ""))
	fx.handle(ActionInput(ActionFinishMenu, ""))
	fx.handle(ActionInput(ActionSelectPackaging, "pack_box"))
}

// advanceToPayment continues through the contact and delivery steps.
func (fx *flowFixture) advanceToPayment() {
	fx.advanceToName()
	fx.handle(TextInput("Алишер"))
	fx.handle(TextInput("+998 90 123 45 67"))
	fx.handle(TextInput("ул. Навои, дом 12"))
	fx.handle(ActionInput(ActionDelivery, ""))
	fx.handle(ActionInput(ActionAsap, ""))
}

func TestFlowEmptyCartGuard(t *testing.T) {
	fx := newFlowFixture(t)

	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionFinishMenu, ""))

	texts := NewDefaultTextResolver()
	if fx.messenger.last() != texts.Resolve("cart_empty_guard", "ru") {
		t.Errorf("got %q, want the empty cart guard message", fx.messenger.last())
	}

	session := fx.flow.entry("user1").session
	if session == nil || session.State != model.StateItemSelect {
		t.Error("session should stay in item selection after the guard fires")
	}
}

func TestFlowHappyPathCash(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCash, ""))
	fx.handle(TextInput("Подтвердить"))

	if len(fx.orders.orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(fx.orders.orders))
	}
	order := fx.orders.orders[0]
	if order.Status != model.OrderStatusNew {
		t.Errorf("got status %q, want %q", order.Status, model.OrderStatusNew)
	}
	if order.Method != model.PaymentMethodCash {
		t.Errorf("got payment method %q, want cash", order.Method)
	}
	if order.Total != 32000 {
		t.Errorf("got total %d, want 32000", order.Total)
	}
	if order.PaymentVerified {
		t.Error("cash orders must not be marked payment verified")
	}
	if _, ok := fx.carts.carts["user1"]; ok {
		t.Error("stored cart should be deleted after the order is accepted")
	}
}

func TestFlowCardPaymentVerified(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCard, ""))
	fx.clock = fx.clock.Add(2 * time.Minute)
	fx.handle(TextInput("32000"))
	fx.handle(TextInput("подтвердить"))

	if len(fx.orders.orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(fx.orders.orders))
	}
	order := fx.orders.orders[0]
	if order.Status != model.OrderStatusNew {
		t.Errorf("got status %q, want %q", order.Status, model.OrderStatusNew)
	}
	if !order.PaymentVerified {
		t.Error("amount reported in time should mark the order payment verified")
	}
	if order.PaymentAmount != 32000 {
		t.Errorf("got payment amount %d, want 32000", order.PaymentAmount)
	}
}

func TestFlowCardAmountMismatch(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCard, ""))
	fx.handle(TextInput("30000"))

	session := fx.flow.entry("user1").session
	if session.State != model.StateVerifyPayment {
		t.Errorf("a mismatch should keep the session in verification, got %v", session.State)
	}

	// The correct amount still goes through afterwards.
	fx.handle(TextInput("32000"))
	if session.State != model.StateConfirm {
		t.Errorf("got state %v after correct amount, want confirm", session.State)
	}
}

func TestFlowCardWindowExpired(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCard, ""))
	fx.clock = fx.clock.Add(601 * time.Second)
	fx.handle(TextInput("32000"))

	session := fx.flow.entry("user1").session
	if session.State != model.StatePayment {
		t.Fatalf("got state %v after expiry, want payment", session.State)
	}
	if !session.CashOnly {
		t.Error("card must be withdrawn after the window expires")
	}

	// Picking card again is rejected; cash completes the order.
	fx.handle(ActionInput(ActionCard, ""))
	if session.State != model.StatePayment {
		t.Error("card selection must be ignored once the window expired")
	}
	fx.handle(ActionInput(ActionCash, ""))
	fx.handle(TextInput("Подтвердить"))

	if len(fx.orders.orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(fx.orders.orders))
	}
	if fx.orders.orders[0].Method != model.PaymentMethodCash {
		t.Error("order should fall back to cash payment")
	}
}

func TestFlowDoubleConfirmCreatesOneOrder(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCash, ""))
	fx.handle(TextInput("Подтвердить"))
	fx.handle(TextInput("Подтвердить"))

	if len(fx.orders.orders) != 1 {
		t.Fatalf("got %d orders after a double confirm, want exactly 1", len(fx.orders.orders))
	}
}

func TestFlowConfirmRequiresExactMatch(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCash, ""))
	fx.handle(TextInput("да, давайте"))

	if len(fx.orders.orders) != 0 {
		t.Fatal("free text must not finalize the order")
	}
	session := fx.flow.entry("user1").session
	if session == nil || session.State != model.StateConfirm {
		t.Error("session should stay in confirmation after unrecognized text")
	}
}

func TestFlowCancelAtConfirm(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCash, ""))
	fx.handle(TextInput("Отменить"))

	if len(fx.orders.orders) != 0 {
		t.Fatal("cancelled flow must not create an order")
	}
	if fx.flow.entry("user1").session != nil {
		t.Error("session should be discarded after cancellation")
	}
}

func TestFlowReservedTextRejectedAsName(t *testing.T) {
	fx := newFlowFixture(t)
	fx.advanceToName()

	testCases := []string{"🛒 Корзина", "/start", "❓ Помощь"}
	for _, text := range testCases {
		fx.handle(TextInput(text))
		session := fx.flow.entry("user1").session
		if session.State != model.StateName {
			t.Errorf("input %q should be rejected and keep the name prompt", text)
		}
		if session.CustomerName != "" {
			t.Errorf("input %q must not be stored as the customer name", text)
		}
	}

	fx.handle(TextInput("Алишер"))
	if fx.flow.entry("user1").session.State != model.StatePhone {
		t.Error("a real name should advance to the phone prompt")
	}
}

func TestFlowShortInputsRejected(t *testing.T) {
	fx := newFlowFixture(t)
	fx.advanceToName()

	fx.handle(TextInput("А"))
	session := fx.flow.entry("user1").session
	if session.State != model.StateName {
		t.Error("a one-letter name should be rejected")
	}

	fx.handle(TextInput("Алишер"))
	fx.handle(TextInput("12345678"))
	if session.State != model.StatePhone {
		t.Error("a phone number with fewer than nine digits should be rejected")
	}

	fx.handle(TextInput("+998 90 123 45 67"))
	fx.handle(TextInput("дом"))
	if session.State != model.StateAddress {
		t.Error("an address under five characters should be rejected")
	}
}

func TestFlowInterruptionSavesCartAndResumes(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToName()
	fx.handle(TextInput("Алишер"))
	fx.handle(TextInput("+998 90 123 45 67"))

	// An unrelated menu action mid-address suspends the flow.
	fx.handle(ActionInput("show_promotions", ""))

	if fx.flow.entry("user1").session != nil {
		t.Fatal("session should be discarded after the interruption")
	}
	cart := fx.carts.carts["user1"]
	if cart == nil {
		t.Fatal("a meaningful cart must be persisted on interruption")
	}
	if cart.Items["samsa_beef"] != 2 || cart.Items["pack_box"] != 1 {
		t.Errorf("stored cart items %v do not match the session", cart.Items)
	}

	// A new start offers the stored cart; resuming restores the items but
	// restarts contact collection.
	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionResume, ""))

	session := fx.flow.entry("user1").session
	if session.State != model.StatePackagingSelect {
		t.Errorf("got state %v after resume, want packaging selection", session.State)
	}
	if session.Items["samsa_beef"] != 2 {
		t.Errorf("resumed session lost items: %v", session.Items)
	}
	if session.CustomerName != "" {
		t.Error("contact details must not survive the interruption")
	}
}

func TestFlowInterruptionWithEmptyCartDeletesStored(t *testing.T) {
	fx := newFlowFixture(t)
	fx.carts.carts["user1"] = &model.Cart{
		CustomerID: "user1",
		Items:      map[string]int{"samsa_beef": 1},
		Total:      15000,
	}

	// Restart discards the stored cart, then an interruption with nothing
	// selected must not leave a stored cart behind.
	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionRestart, ""))
	fx.handle(ActionInput("show_promotions", ""))

	if _, ok := fx.carts.carts["user1"]; ok {
		t.Error("an empty session must not persist a cart on interruption")
	}
}

func TestFlowUnavailableItemRejected(t *testing.T) {
	fx := newFlowFixture(t)
	catalog := fx.flow.catalog.(*fakeCatalog)
	catalog.unavailable["samsa_beef"] = true

	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionSelectItem, "samsa_beef"))

	session := fx.flow.entry("user1").session
	if session.State != model.StateItemSelect {
		t.Error("selecting an unavailable item should stay in the menu")
	}
	if len(session.Items) != 0 {
		t.Errorf("unavailable item leaked into the session: %v", session.Items)
	}
}

func TestFlowDecrementFloorsAtZero(t *testing.T) {
	fx := newFlowFixture(t)

	fx.handle(ActionInput(ActionStart, ""))
	fx.handle(ActionInput(ActionSelectItem, "samsa_beef"))
	fx.handle(ActionInput(ActionDecItem, "samsa_beef"))
	fx.handle(ActionInput(ActionDecItem, "samsa_beef"))

	session := fx.flow.entry("user1").session
	if session.Items["samsa_beef"] != 0 {
		t.Errorf("got quantity %d, want 0", session.Items["samsa_beef"])
	}
	if session.Total != 0 {
		t.Errorf("got total %d, want 0", session.Total)
	}
}

func TestFlowPickupShowsLocationInfo(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToName()
	fx.handle(TextInput("Алишер"))
	fx.handle(TextInput("+998 90 123 45 67"))
	fx.handle(TextInput("ул. Навои, дом 12"))
	before := len(fx.messenger.messages)
	fx.handle(ActionInput(ActionPickup, ""))

	texts := NewDefaultTextResolver()
	found := false
	for _, msg := range fx.messenger.messages[before:] {
		if msg == texts.Resolve("pickup_info", "ru") {
			found = true
		}
	}
	if !found {
		t.Error("pickup must surface the location and hours before the time choice")
	}
	if fx.flow.entry("user1").session.State != model.StateTimeChoice {
		t.Error("pickup should advance to the time choice")
	}
}

func TestFlowSpecificTimeText(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToName()
	fx.handle(TextInput("Алишер"))
	fx.handle(TextInput("+998 90 123 45 67"))
	fx.handle(TextInput("ул. Навои, дом 12"))
	fx.handle(ActionInput(ActionDelivery, ""))
	fx.handle(ActionInput(ActionSpecificTime, ""))
	fx.handle(TextInput("14:30"))

	session := fx.flow.entry("user1").session
	if session.RequestedTime != "14:30" {
		t.Errorf("got requested time %q, want %q", session.RequestedTime, "14:30")
	}
	if session.State != model.StatePayment {
		t.Errorf("got state %v, want payment", session.State)
	}
}

func TestFlowInterruptionDuringPaymentVerification(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToPayment()
	fx.handle(ActionInput(ActionCard, ""))

	// An unrelated menu action while the transfer amount is awaited must
	// suspend the flow like in every other state.
	fx.handle(ActionInput("show_promotions", ""))

	if fx.flow.entry("user1").session != nil {
		t.Fatal("session should be discarded after an interruption mid-verification")
	}
	cart := fx.carts.carts["user1"]
	if cart == nil {
		t.Fatal("the cart must be persisted on interruption mid-verification")
	}
	if cart.Items["samsa_beef"] != 2 || cart.Items["pack_box"] != 1 {
		t.Errorf("stored cart items %v do not match the session", cart.Items)
	}
	if len(fx.orders.orders) != 0 {
		t.Error("no order may be created by an interruption")
	}
}

func TestFlowWriteReviewMidFlowSuspendsCart(t *testing.T) {
	fx := newFlowFixture(t)

	fx.advanceToName()
	fx.handle(TextInput("Алишер"))
	fx.handle(ActionInput(ActionWriteReview, ""))

	if fx.flow.entry("user1").session != nil {
		t.Fatal("the order conversation should be suspended before the review is captured")
	}
	if fx.carts.carts["user1"] == nil {
		t.Fatal("a meaningful cart must survive the switch to the review")
	}

	fx.handle(TextInput("Очень вкусная самса, спасибо!"))

	if len(fx.reviews.reviews) != 1 {
		t.Fatalf("got %d stored reviews, want 1", len(fx.reviews.reviews))
	}
	review := fx.reviews.reviews[0]
	if review.Text != "Очень вкусная самса, спасибо!" {
		t.Errorf("got review text %q", review.Text)
	}
	if review.Author != "Алишер" {
		t.Errorf("got review author %q, want the collected name", review.Author)
	}

	texts := NewDefaultTextResolver()
	if fx.messenger.last() != texts.Resolve("review_saved", "ru") {
		t.Errorf("got %q, want the review thank-you message", fx.messenger.last())
	}

	// The next text message is ordinary input again, not a second review.
	fx.handle(TextInput("ещё один отзыв?"))
	if len(fx.reviews.reviews) != 1 {
		t.Error("only the first message after the prompt may be captured as a review")
	}
}

func TestFlowWriteReviewByMenuLabel(t *testing.T) {
	fx := newFlowFixture(t)

	fx.handle(TextInput("📝 Оставить отзыв"))
	fx.handle(TextInput("Буду заказывать ещё"))

	if len(fx.reviews.reviews) != 1 {
		t.Fatalf("got %d stored reviews, want 1", len(fx.reviews.reviews))
	}
	if fx.reviews.reviews[0].Author != "" {
		t.Errorf("a review outside a conversation has no author, got %q", fx.reviews.reviews[0].Author)
	}
}

func TestFlowShowReviews(t *testing.T) {
	fx := newFlowFixture(t)
	fx.reviews.reviews = []*model.Review{
		{CustomerID: "a", Author: "Саида", Text: "Отлично"},
		{CustomerID: "b", Text: "Быстро привезли"},
	}

	fx.handle(TextInput("💬 Отзывы"))

	last := fx.messenger.last()
	if !strings.Contains(last, "Саида: Отлично") {
		t.Errorf("review listing %q is missing a named review", last)
	}
	if !strings.Contains(last, "Гость: Быстро привезли") {
		t.Errorf("review listing %q should fall back to the guest label", last)
	}
	if fx.flow.entry("user1").session != nil {
		t.Error("showing reviews must not open a conversation")
	}
}

func TestFlowShowReviewsEmpty(t *testing.T) {
	fx := newFlowFixture(t)

	fx.handle(ActionInput(ActionShowReviews, ""))

	texts := NewDefaultTextResolver()
	if fx.messenger.last() != texts.Resolve("reviews_empty", "ru") {
		t.Errorf("got %q, want the no-reviews message", fx.messenger.last())
	}
}

func TestFlowConcurrentCustomersDoNotRace(t *testing.T) {
	fx := newFlowFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		customerID := fmt.Sprintf("user%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fx.flow.HandleInput(context.Background(), customerID, ActionInput(ActionStart, ""))
			fx.flow.HandleInput(context.Background(), customerID, ActionInput(ActionSelectItem, "samsa_beef"))
			fx.flow.HandleInput(context.Background(), customerID, ActionInput(ActionCancel, ""))
		}()
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		customerID := fmt.Sprintf("user%d", i)
		if fx.flow.entry(customerID).session != nil {
			t.Errorf("customer %s still has a session after cancel", customerID)
		}
	}
}

func TestFlowCartCommandOutsideSession(t *testing.T) {
	fx := newFlowFixture(t)
	fx.carts.carts["user1"] = &model.Cart{
		CustomerID: "user1",
		Items:      map[string]int{"samsa_chicken": 3},
		Total:      36000,
	}

	fx.handle(TextInput("/cart"))

	last := fx.messenger.last()
	if last == "" {
		t.Fatal("the /cart command should produce a summary message")
	}
	texts := NewDefaultTextResolver()
	if last == texts.Resolve("cart_empty", "ru") {
		t.Error("a stored cart must not be reported as empty")
	}
	if fx.flow.entry("user1").session != nil {
		t.Error("showing the cart must not open a conversation")
	}
}
