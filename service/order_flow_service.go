package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"samsariya-backend/infra"
	"samsariya-backend/metrics"
	"samsariya-backend/middleware"
	"samsariya-backend/model"
	"samsariya-backend/service/interfaces"
	"samsariya-backend/utils"

	"github.com/rs/zerolog"
)

// InputKind separates free text from button/postback actions.
type InputKind int

const (
	InputText InputKind = iota
	InputAction
)

// Flow actions carried by postbacks.
const (
	ActionStart           = "start_order"
	ActionResume          = "resume_cart"
	ActionRestart         = "restart_cart"
	ActionSelectItem      = "select_item"
	ActionIncItem         = "inc_item"
	ActionDecItem         = "dec_item"
	ActionRemoveItem      = "remove_item"
	ActionFinishItem      = "finish_item"
	ActionFinishMenu      = "finish_menu"
	ActionSelectPackaging = "select_packaging"
	ActionDelivery        = "delivery"
	ActionPickup          = "pickup"
	ActionAsap            = "asap"
	ActionSpecificTime    = "specific_time"
	ActionCash            = "cash"
	ActionCard            = "card"
	ActionConfirm         = "confirm"
	ActionCancel          = "cancel_order"
	ActionShowCart        = "show_cart"
	ActionClearCart       = "clear_cart"
	ActionWriteReview     = "write_review"
	ActionShowReviews     = "show_reviews"
)

// Input is one customer event fed into the flow.
type Input struct {
	Kind   InputKind
	Text   string
	Action string
	Arg    string // item key for item actions
}

// TextInput wraps a plain chat message.
func TextInput(text string) Input {
	return Input{Kind: InputText, Text: text}
}

// ActionInput wraps a button/postback action.
func ActionInput(action, arg string) Input {
	return Input{Kind: InputAction, Action: action, Arg: arg}
}

// Main-keyboard labels that double as flow entry points when typed.
const (
	reviewWriteLabel = "📝 Оставить отзыв"
	reviewShowLabel  = "💬 Отзывы"
)

// reservedMenuTexts are main-keyboard labels that must never be accepted as
// contact input.
var reservedMenuTexts = map[string]struct{}{
	"✅ Завершить заказ": {},
	"🛒 Корзина":         {},
	"❌ Отменить заказ":  {},
	reviewShowLabel:     {},
	"ℹ️ О нас":          {},
	"🔥 Акции":           {},
	"⏰ Время работы":    {},
	"🌐 Язык":            {},
	"❓ Помощь":           {},
	"📞 Контакты":         {},
	reviewWriteLabel:    {},
}

func isReservedText(text string) bool {
	if strings.HasPrefix(text, "/") {
		return true
	}
	_, ok := reservedMenuTexts[text]
	return ok
}

// sessionEntry serializes all handling for one customer.
type sessionEntry struct {
	mu      sync.Mutex
	session *model.Session

	// awaitingReview is set while the next text message is captured as a
	// review. Independent of the order session, which is suspended first.
	awaitingReview bool
	reviewAuthor   string
}

// OrderFlowService is the conversation state machine. One ephemeral session
// per active customer; every input for a customer is processed under that
// customer's lock, so two rapid actions are never handled out of order.
type OrderFlowService struct {
	logger     zerolog.Logger
	carts      interfaces.CartStore
	orders     interfaces.OrderStore
	catalog    interfaces.Catalog
	messenger  interfaces.Messenger
	texts      interfaces.TextResolver
	reviews    interfaces.ReviewStore
	locale     string
	cardNumber string

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	// now is swappable in tests.
	now func() time.Time
}

func NewOrderFlowService(
	logger zerolog.Logger,
	carts interfaces.CartStore,
	orders interfaces.OrderStore,
	catalog interfaces.Catalog,
	messenger interfaces.Messenger,
	texts interfaces.TextResolver,
	reviews interfaces.ReviewStore,
	cardNumber string,
) *OrderFlowService {
	return &OrderFlowService{
		logger:     logger.With().Str("module", "order_flow_service").Logger(),
		carts:      carts,
		orders:     orders,
		catalog:    catalog,
		messenger:  messenger,
		texts:      texts,
		reviews:    reviews,
		locale:     "ru",
		cardNumber: cardNumber,
		sessions:   make(map[string]*sessionEntry),
	}
}

func (f *OrderFlowService) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func (f *OrderFlowService) text(key string) string {
	return f.texts.Resolve(key, f.locale)
}

func (f *OrderFlowService) entry(customerID string) *sessionEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.sessions[customerID]
	if !ok {
		e = &sessionEntry{}
		f.sessions[customerID] = e
	}
	return e
}

func (f *OrderFlowService) dropSession(customerID string) {
	f.mu.Lock()
	if e, ok := f.sessions[customerID]; ok {
		e.session = nil
	}
	middleware.UpdateActiveFlowSessions(f.countSessionsLocked())
	f.mu.Unlock()
}

func (f *OrderFlowService) countSessionsLocked() int {
	n := 0
	for _, e := range f.sessions {
		if e.session != nil {
			n++
		}
	}
	return n
}

// HandleInput processes one customer event through the transition table.
// All errors are absorbed here: validation and guard failures re-prompt,
// persistence failures surface a generic retryable message.
func (f *OrderFlowService) HandleInput(ctx context.Context, customerID string, input Input) {
	start := time.Now()
	ctx, span := infra.StartSpan(ctx, "flow.handle_input",
		infra.AttrString("customer_id", customerID),
	)
	defer span.End()

	e := f.entry(customerID)
	e.mu.Lock()
	defer e.mu.Unlock()

	err := f.dispatch(ctx, e, customerID, input)
	if err != nil {
		infra.RecordError(span, err, "flow step failed")
		metrics.RecordServiceOperation(metrics.ServiceTypeFlow, metrics.OperationFlowStep, metrics.StatusError, time.Since(start))
		f.logger.Error().Err(err).Str("customer_id", customerID).Msg("Flow step failed")
		f.send(ctx, customerID, f.text("generic_retryable"))
		return
	}
	infra.MarkSuccess(span)
	metrics.RecordServiceOperation(metrics.ServiceTypeFlow, metrics.OperationFlowStep, metrics.StatusSuccess, time.Since(start))
}

// dispatch is the state × input-kind transition table.
func (f *OrderFlowService) dispatch(ctx context.Context, e *sessionEntry, customerID string, input Input) error {
	// Cross-state actions first.
	if input.Kind == InputAction {
		e.awaitingReview = false
		switch input.Action {
		case ActionStart:
			return f.handleStart(ctx, e, customerID)
		case ActionShowCart:
			return f.showCartSummary(ctx, e, customerID)
		case ActionClearCart:
			return f.clearCart(ctx, e, customerID)
		case ActionCancel:
			return f.cancelOrder(ctx, e, customerID)
		case ActionWriteReview:
			return f.startReview(ctx, e, customerID)
		case ActionShowReviews:
			return f.showReviews(ctx, customerID)
		}
	}
	if input.Kind == InputText {
		switch strings.TrimSpace(input.Text) {
		case "/cart":
			return f.showCartSummary(ctx, e, customerID)
		case reviewWriteLabel:
			return f.startReview(ctx, e, customerID)
		case reviewShowLabel:
			return f.showReviews(ctx, customerID)
		}
	}

	if e.awaitingReview && input.Kind == InputText {
		return f.saveReview(ctx, e, customerID, input.Text)
	}

	s := e.session
	if s == nil {
		// No active conversation; only start-like inputs matter.
		if input.Kind == InputText {
			return nil
		}
		return f.handleStart(ctx, e, customerID)
	}

	if s.AwaitingResumeChoice {
		return f.handleResumeChoice(ctx, e, s, input)
	}

	switch s.State {
	case model.StateItemSelect, model.StateItemEdit:
		return f.handleItemStates(ctx, e, s, input)
	case model.StatePackagingSelect:
		return f.handlePackagingSelect(ctx, e, s, input)
	case model.StateName:
		return f.handleName(ctx, e, s, input)
	case model.StatePhone:
		return f.handlePhone(ctx, e, s, input)
	case model.StateAddress:
		return f.handleAddress(ctx, e, s, input)
	case model.StateDelivery:
		return f.handleDelivery(ctx, e, s, input)
	case model.StateTimeChoice:
		return f.handleTimeChoice(ctx, e, s, input)
	case model.StatePayment:
		return f.handlePayment(ctx, e, s, input)
	case model.StateVerifyPayment:
		return f.handleVerifyPayment(ctx, e, s, input)
	case model.StateConfirm:
		return f.handleConfirm(ctx, e, s, input)
	default:
		return nil
	}
}

// handleStart opens a conversation. A meaningful stored cart forces the
// resume-or-restart choice before anything else is reachable.
func (f *OrderFlowService) handleStart(ctx context.Context, e *sessionEntry, customerID string) error {
	cart, err := f.carts.Load(ctx, customerID)
	if err != nil {
		return err
	}

	s := model.NewSession(customerID)
	f.mu.Lock()
	e.session = s
	middleware.UpdateActiveFlowSessions(f.countSessionsLocked())
	f.mu.Unlock()

	if cart.IsMeaningful() {
		s.LoadCart(cart)
		s.AwaitingResumeChoice = true
		return f.send(ctx, customerID, f.text("resume_choice_prompt"))
	}
	return f.send(ctx, customerID, f.text("item_menu_prompt"))
}

func (f *OrderFlowService) handleResumeChoice(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputAction {
		return f.send(ctx, s.CustomerID, f.text("resume_choice_prompt"))
	}
	switch input.Action {
	case ActionResume:
		s.AwaitingResumeChoice = false
		s.State = model.StatePackagingSelect
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		if err := f.send(ctx, s.CustomerID, f.text("cart_restored")); err != nil {
			return err
		}
		return f.send(ctx, s.CustomerID, f.text("packaging_prompt"))
	case ActionRestart:
		if err := f.carts.Delete(ctx, s.CustomerID); err != nil {
			return err
		}
		s.Items = make(map[string]int)
		s.Total = 0
		s.AwaitingResumeChoice = false
		s.State = model.StateItemSelect
		return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))
	default:
		// Anything else while the choice is pending is an interruption.
		return f.saveAndSuspend(ctx, e, s)
	}
}

// handleItemStates serves the ItemSelect/ItemEdit sub-loop.
func (f *OrderFlowService) handleItemStates(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind == InputText {
		// Free text is noise here; show the menu again.
		return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))
	}

	switch input.Action {
	case ActionSelectItem:
		if !f.catalog.IsAvailable(input.Arg) {
			return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))
		}
		s.State = model.StateItemEdit
		s.EditingItem = input.Arg
		if s.Items[input.Arg] == 0 {
			s.Items[input.Arg] = 1
		}
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		return f.send(ctx, s.CustomerID, f.text("item_edit_prompt"))

	case ActionIncItem:
		key := f.itemArg(s, input)
		s.Items[key]++
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		return f.send(ctx, s.CustomerID, f.text("item_edit_prompt"))

	case ActionDecItem:
		key := f.itemArg(s, input)
		if s.Items[key] > 0 {
			s.Items[key]--
		}
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		return f.send(ctx, s.CustomerID, f.text("item_edit_prompt"))

	case ActionRemoveItem:
		key := f.itemArg(s, input)
		delete(s.Items, key)
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		if err := f.persistCart(ctx, s); err != nil {
			return err
		}
		s.State = model.StateItemSelect
		s.EditingItem = ""
		return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))

	case ActionFinishItem:
		if err := f.persistCart(ctx, s); err != nil {
			return err
		}
		s.State = model.StateItemSelect
		s.EditingItem = ""
		return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))

	case ActionFinishMenu:
		if !f.hasAnyItem(s) {
			guard := &StateGuardError{State: s.State.String(), Reason: "cart is empty"}
			f.logger.Debug().Str("customer_id", s.CustomerID).Str("guard", guard.Error()).Msg("Finish blocked")
			return f.send(ctx, s.CustomerID, f.text("cart_empty_guard"))
		}
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		if err := f.persistCart(ctx, s); err != nil {
			return err
		}
		s.State = model.StatePackagingSelect
		s.EditingItem = ""
		return f.send(ctx, s.CustomerID, f.text("packaging_prompt"))

	default:
		return f.saveAndSuspend(ctx, e, s)
	}
}

func (f *OrderFlowService) handlePackagingSelect(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind == InputText {
		return f.send(ctx, s.CustomerID, f.text("packaging_prompt"))
	}
	switch input.Action {
	case ActionSelectPackaging:
		if category, ok := f.catalog.Category(input.Arg); !ok || category != model.CategoryPackaging {
			return f.send(ctx, s.CustomerID, f.text("packaging_prompt"))
		}
		s.Items[input.Arg]++
		if err := f.recomputeTotal(s); err != nil {
			return err
		}
		if err := f.persistCart(ctx, s); err != nil {
			return err
		}
		// Packaging chosen; go straight to contact collection.
		s.State = model.StateName
		return f.send(ctx, s.CustomerID, f.text("enter_name"))
	case ActionFinishMenu:
		// Re-entry into the item loop from the cart summary.
		s.State = model.StateItemSelect
		return f.send(ctx, s.CustomerID, f.text("item_menu_prompt"))
	default:
		return f.saveAndSuspend(ctx, e, s)
	}
}

func (f *OrderFlowService) handleName(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputText {
		return f.saveAndSuspend(ctx, e, s)
	}
	text := strings.TrimSpace(input.Text)
	if isReservedText(text) {
		return f.send(ctx, s.CustomerID, f.text("enter_name_manually"))
	}
	if len([]rune(text)) < 2 {
		f.logValidation(s, &ValidationError{Field: "name", Reason: "too short"})
		return f.send(ctx, s.CustomerID, f.text("name_too_short"))
	}
	s.CustomerName = text
	s.State = model.StatePhone
	return f.send(ctx, s.CustomerID, f.text("enter_phone"))
}

func (f *OrderFlowService) handlePhone(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputText {
		return f.saveAndSuspend(ctx, e, s)
	}
	text := strings.TrimSpace(input.Text)
	if isReservedText(text) {
		return f.send(ctx, s.CustomerID, f.text("enter_phone_manually"))
	}
	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 9 {
		f.logValidation(s, &ValidationError{Field: "phone", Reason: "fewer than 9 digits"})
		return f.send(ctx, s.CustomerID, f.text("phone_too_short"))
	}
	s.CustomerPhone = text
	s.State = model.StateAddress
	return f.send(ctx, s.CustomerID, f.text("enter_address"))
}

func (f *OrderFlowService) handleAddress(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputText {
		return f.saveAndSuspend(ctx, e, s)
	}
	text := strings.TrimSpace(input.Text)
	if isReservedText(text) {
		return f.send(ctx, s.CustomerID, f.text("enter_address_manually"))
	}
	if len([]rune(text)) < 5 {
		f.logValidation(s, &ValidationError{Field: "address", Reason: "too short"})
		return f.send(ctx, s.CustomerID, f.text("address_too_short"))
	}
	s.CustomerAddress = text
	s.State = model.StateDelivery
	return f.send(ctx, s.CustomerID, f.text("choose_delivery"))
}

func (f *OrderFlowService) handleDelivery(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputAction {
		return f.send(ctx, s.CustomerID, f.text("choose_delivery"))
	}
	switch input.Action {
	case ActionPickup:
		s.Delivery = model.DeliveryMethodPickup
		s.State = model.StateTimeChoice
		// Pickup surfaces the fixed location and hours first.
		if err := f.send(ctx, s.CustomerID, f.text("pickup_info")); err != nil {
			return err
		}
		return f.send(ctx, s.CustomerID, f.text("choose_time"))
	case ActionDelivery:
		s.Delivery = model.DeliveryMethodDelivery
		s.State = model.StateTimeChoice
		return f.send(ctx, s.CustomerID, f.text("choose_time"))
	default:
		return f.saveAndSuspend(ctx, e, s)
	}
}

func (f *OrderFlowService) handleTimeChoice(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind == InputText {
		if !s.AwaitingTimeText {
			return f.send(ctx, s.CustomerID, f.text("choose_time"))
		}
		text := strings.TrimSpace(input.Text)
		if text == "" || isReservedText(text) {
			return f.send(ctx, s.CustomerID, f.text("enter_specific_time"))
		}
		s.RequestedTime = text
		s.AwaitingTimeText = false
		return f.promptPayment(ctx, s)
	}
	switch input.Action {
	case ActionAsap:
		s.RequestedTime = f.text("asap_option")
		return f.promptPayment(ctx, s)
	case ActionSpecificTime:
		s.AwaitingTimeText = true
		return f.send(ctx, s.CustomerID, f.text("enter_specific_time"))
	default:
		return f.saveAndSuspend(ctx, e, s)
	}
}

func (f *OrderFlowService) promptPayment(ctx context.Context, s *model.Session) error {
	s.State = model.StatePayment
	if s.CashOnly {
		return f.send(ctx, s.CustomerID, f.text("choose_payment_cash"))
	}
	return f.send(ctx, s.CustomerID, f.text("choose_payment"))
}

func (f *OrderFlowService) handlePayment(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputAction {
		return f.promptPayment(ctx, s)
	}
	switch input.Action {
	case ActionCash:
		s.Method = model.PaymentMethodCash
		return f.moveToConfirm(ctx, s)
	case ActionCard:
		if s.CashOnly {
			// Card was withdrawn after the window expired.
			return f.promptPayment(ctx, s)
		}
		s.Method = model.PaymentMethodCard
		window := StartPaymentWindow(f.clock())
		s.PaymentStart = &window.Start
		s.State = model.StateVerifyPayment
		msg := fmt.Sprintf(f.text("card_instructions"), s.Total, f.cardNumber)
		return f.send(ctx, s.CustomerID, msg)
	default:
		return f.saveAndSuspend(ctx, e, s)
	}
}

func (f *OrderFlowService) handleVerifyPayment(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	if input.Kind != InputText {
		// An unrelated action mid-verification suspends like everywhere else.
		return f.saveAndSuspend(ctx, e, s)
	}
	reported, err := strconv.Atoi(strings.TrimSpace(input.Text))
	if err != nil {
		f.logValidation(s, &ValidationError{Field: "payment_amount", Reason: "not a number"})
		return f.send(ctx, s.CustomerID, f.text("payment_enter_digits"))
	}

	if s.PaymentStart == nil {
		s.State = model.StatePayment
		return f.promptPayment(ctx, s)
	}
	window := PaymentWindow{Start: *s.PaymentStart}
	switch window.Verify(reported, s.Total, f.clock()) {
	case PaymentMismatch:
		msg := fmt.Sprintf(f.text("payment_mismatch"), reported, s.Total)
		return f.send(ctx, s.CustomerID, msg)
	case PaymentExpired:
		// Back to payment choice, card no longer offered.
		s.State = model.StatePayment
		s.CashOnly = true
		s.PaymentStart = nil
		return f.send(ctx, s.CustomerID, f.text("payment_expired"))
	default:
		s.PaymentVerified = true
		s.PaymentAmount = reported
		if err := f.send(ctx, s.CustomerID, f.text("payment_verified")); err != nil {
			return err
		}
		return f.moveToConfirm(ctx, s)
	}
}

func (f *OrderFlowService) moveToConfirm(ctx context.Context, s *model.Session) error {
	s.State = model.StateConfirm
	s.Summary = f.buildSummary(s)
	if err := f.send(ctx, s.CustomerID, s.Summary); err != nil {
		return err
	}
	return f.send(ctx, s.CustomerID, f.text("confirm_prompt"))
}

func (f *OrderFlowService) handleConfirm(ctx context.Context, e *sessionEntry, s *model.Session, input Input) error {
	confirmed := false
	cancelled := false
	switch {
	case input.Kind == InputAction && input.Action == ActionConfirm:
		confirmed = true
	case input.Kind == InputAction:
		return f.saveAndSuspend(ctx, e, s)
	default:
		text := strings.ToLower(strings.TrimSpace(input.Text))
		confirmed = text == strings.ToLower(f.text("confirm_option"))
		cancelled = text == strings.ToLower(f.text("cancel_option"))
	}

	if cancelled {
		f.dropSession(s.CustomerID)
		return f.send(ctx, s.CustomerID, f.text("order_cancelled"))
	}
	if !confirmed {
		// Only the two recognized answers move the flow.
		return f.send(ctx, s.CustomerID, f.text("confirm_prompt"))
	}
	return f.finalize(ctx, s)
}

// finalize writes the Order, publishes it and clears the stored cart. The
// session leaves Confirm before the write, so a second rapid confirm finds
// no session and cannot create a duplicate order.
func (f *OrderFlowService) finalize(ctx context.Context, s *model.Session) error {
	status := model.OrderStatusNew
	resultText := f.text("order_accepted")
	if s.Method == model.PaymentMethodCard {
		if s.PaymentVerified {
			// Amount reported in time; the admin still checks the transfer.
			status = model.OrderStatusNew
			resultText = f.text("order_card_pending")
		} else {
			status = model.OrderStatusPaymentFailed
			resultText = f.text("order_payment_failed")
		}
	}

	now := f.clock()
	order := &model.Order{
		CustomerID:      s.CustomerID,
		Items:           s.Items,
		Total:           s.Total,
		CustomerName:    s.CustomerName,
		CustomerPhone:   s.CustomerPhone,
		CustomerAddress: s.CustomerAddress,
		Delivery:        s.Delivery,
		Time:            s.RequestedTime,
		Method:          s.Method,
		Summary:         s.Summary,
		Status:          status,
		PaymentVerified: s.PaymentVerified,
		PaymentAmount:   s.PaymentAmount,
		IsPreorder:      f.isPreorder(now),
	}

	s.State = model.StateEnd
	f.dropSession(s.CustomerID)

	if _, err := f.orders.Create(ctx, order); err != nil {
		f.logger.Error().Err(err).Str("customer_id", s.CustomerID).Msg("Order write failed at finalize")
		return f.send(ctx, s.CustomerID, f.text("order_save_error"))
	}

	// Order landed; a failure here only leaves a stale cart behind.
	if err := f.carts.Delete(ctx, s.CustomerID); err != nil {
		f.logger.Warn().Err(err).Str("customer_id", s.CustomerID).Msg("Cart cleanup failed after order write")
	}

	return f.send(ctx, s.CustomerID, resultText)
}

// saveAndSuspend handles an unrelated menu action mid-flow: persist the cart
// when it is meaningful, otherwise drop any stored cart; either way the
// session ends.
func (f *OrderFlowService) saveAndSuspend(ctx context.Context, e *sessionEntry, s *model.Session) error {
	meaningful := f.hasAnyItem(s)
	customerID := s.CustomerID

	if meaningful {
		if err := f.persistCart(ctx, s); err != nil {
			f.logger.Error().Err(err).Str("customer_id", customerID).Msg("Cart save failed during suspension")
		}
		f.dropSession(customerID)
		return f.send(ctx, customerID, f.text("interruption_saved"))
	}

	if err := f.carts.Delete(ctx, customerID); err != nil {
		f.logger.Error().Err(err).Str("customer_id", customerID).Msg("Cart delete failed during suspension")
	}
	f.dropSession(customerID)
	return f.send(ctx, customerID, f.text("interruption_exit"))
}

// showCartSummary is the read-only /cart view. Outside a conversation it
// reads the stored cart; inside it reads the live session.
func (f *OrderFlowService) showCartSummary(ctx context.Context, e *sessionEntry, customerID string) error {
	var items map[string]int
	var total int

	if s := e.session; s != nil {
		items, total = s.Items, s.Total
	} else {
		cart, err := f.carts.Load(ctx, customerID)
		if err != nil {
			return err
		}
		if cart != nil {
			items, total = cart.Items, cart.Total
		}
	}

	any := false
	for _, qty := range items {
		if qty > 0 {
			any = true
			break
		}
	}
	if !any {
		return f.send(ctx, customerID, f.text("cart_empty"))
	}

	var b strings.Builder
	b.WriteString(f.text("cart_summary_title"))
	b.WriteString("\n")
	f.writeItemLines(&b, items)
	fmt.Fprintf(&b, "\n%s %d сум", f.text("total_label"), total)
	return f.send(ctx, customerID, b.String())
}

func (f *OrderFlowService) clearCart(ctx context.Context, e *sessionEntry, customerID string) error {
	if err := f.carts.Delete(ctx, customerID); err != nil {
		return err
	}
	f.dropSession(customerID)
	return f.send(ctx, customerID, f.text("cart_cleared"))
}

func (f *OrderFlowService) cancelOrder(ctx context.Context, e *sessionEntry, customerID string) error {
	if err := f.carts.Delete(ctx, customerID); err != nil {
		f.logger.Error().Err(err).Str("customer_id", customerID).Msg("Cart delete failed during cancel")
	}
	f.dropSession(customerID)
	return f.send(ctx, customerID, f.text("order_cancelled"))
}

// startReview suspends any active order conversation, then captures the next
// text message as a review.
func (f *OrderFlowService) startReview(ctx context.Context, e *sessionEntry, customerID string) error {
	author := ""
	if s := e.session; s != nil {
		author = s.CustomerName
		if err := f.saveAndSuspend(ctx, e, s); err != nil {
			return err
		}
	}
	e.awaitingReview = true
	e.reviewAuthor = author
	return f.send(ctx, customerID, f.text("write_review_prompt"))
}

func (f *OrderFlowService) saveReview(ctx context.Context, e *sessionEntry, customerID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return f.send(ctx, customerID, f.text("write_review_prompt"))
	}

	e.awaitingReview = false
	review := &model.Review{
		CustomerID: customerID,
		Author:     e.reviewAuthor,
		Text:       text,
		CreatedAt:  f.clock().UTC(),
	}
	if err := f.reviews.Save(ctx, review); err != nil {
		f.logger.Error().Err(err).Str("customer_id", customerID).Msg("Review save failed")
		return f.send(ctx, customerID, f.text("review_save_error"))
	}
	return f.send(ctx, customerID, f.text("review_saved"))
}

func (f *OrderFlowService) showReviews(ctx context.Context, customerID string) error {
	reviews, err := f.reviews.Recent(ctx, 5)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return f.send(ctx, customerID, f.text("reviews_empty"))
	}

	var b strings.Builder
	b.WriteString(f.text("reviews_title"))
	b.WriteString("\n\n")
	for _, r := range reviews {
		author := r.Author
		if author == "" {
			author = f.text("review_anonymous")
		}
		fmt.Fprintf(&b, "%s: %s\n\n", author, r.Text)
	}
	return f.send(ctx, customerID, strings.TrimRight(b.String(), "\n"))
}

func (f *OrderFlowService) buildSummary(s *model.Session) string {
	var b strings.Builder
	b.WriteString(f.text("summary_title"))
	b.WriteString("\n\n")
	f.writeItemLines(&b, s.Items)
	fmt.Fprintf(&b, "\n%s %d сум\n\n", f.text("total_label"), s.Total)
	fmt.Fprintf(&b, "%s %s\n", f.text("name_label"), s.CustomerName)
	fmt.Fprintf(&b, "%s %s\n", f.text("phone_label"), s.CustomerPhone)
	fmt.Fprintf(&b, "%s %s\n", f.text("address_label"), s.CustomerAddress)
	fmt.Fprintf(&b, "\n%s / %s", s.Delivery, s.RequestedTime)
	return b.String()
}

// writeItemLines renders the two category sections in a stable order.
func (f *OrderFlowService) writeItemLines(b *strings.Builder, items map[string]int) {
	keys := make([]string, 0, len(items))
	for k, qty := range items {
		if qty > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var samsaLines, packLines []string
	for _, k := range keys {
		line := fmt.Sprintf("• %s — %d шт", f.catalog.DisplayName(k), items[k])
		if category, _ := f.catalog.Category(k); category == model.CategoryPackaging {
			packLines = append(packLines, line)
		} else {
			samsaLines = append(samsaLines, line)
		}
	}
	if len(samsaLines) > 0 {
		b.WriteString(f.text("samsa_section"))
		b.WriteString("\n")
		b.WriteString(strings.Join(samsaLines, "\n"))
		b.WriteString("\n")
	}
	if len(packLines) > 0 {
		b.WriteString(f.text("packaging_section"))
		b.WriteString("\n")
		b.WriteString(strings.Join(packLines, "\n"))
		b.WriteString("\n")
	}
}

func (f *OrderFlowService) recomputeTotal(s *model.Session) error {
	total, err := ComputeTotal(s.Items, f.catalog)
	if err != nil {
		return err
	}
	s.Total = total
	return nil
}

func (f *OrderFlowService) persistCart(ctx context.Context, s *model.Session) error {
	hasSamsa, hasPackaging := false, false
	for k, qty := range s.Items {
		if qty <= 0 {
			continue
		}
		if category, _ := f.catalog.Category(k); category == model.CategoryPackaging {
			hasPackaging = true
		} else {
			hasSamsa = true
		}
	}
	cart := s.ToCart(hasSamsa, hasPackaging, utils.NowUTC())
	return f.carts.Save(ctx, s.CustomerID, cart)
}

// isPreorder flags orders placed inside the configured night window.
func (f *OrderFlowService) isPreorder(now time.Time) bool {
	startHour := infra.AppConfig.Business.NightStartHour
	endHour := infra.AppConfig.Business.NightEndHour
	if startHour == 0 && endHour == 0 {
		return utils.IsPreorderTime(now)
	}
	hour := now.In(utils.GetTashkentLocation()).Hour()
	return utils.IsNightHour(hour, startHour, endHour)
}

func (f *OrderFlowService) hasAnyItem(s *model.Session) bool {
	for _, qty := range s.Items {
		if qty > 0 {
			return true
		}
	}
	return false
}

func (f *OrderFlowService) itemArg(s *model.Session, input Input) string {
	if input.Arg != "" {
		return input.Arg
	}
	return s.EditingItem
}

func (f *OrderFlowService) logValidation(s *model.Session, verr *ValidationError) {
	f.logger.Debug().
		Str("customer_id", s.CustomerID).
		Str("state", s.State.String()).
		Str("field", verr.Field).
		Str("reason", verr.Reason).
		Msg("Input validation failed")
}

func (f *OrderFlowService) send(ctx context.Context, customerID, text string) error {
	if err := f.messenger.Send(ctx, customerID, text); err != nil {
		f.logger.Warn().Err(err).Str("customer_id", customerID).Msg("Failed to send message")
		return nil // delivery problems never break the flow
	}
	return nil
}
