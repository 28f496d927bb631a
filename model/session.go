package model

import "time"

// FlowState is the explicit conversation state of an ordering session.
type FlowState int

const (
	StateItemSelect FlowState = iota
	StateItemEdit
	StatePackagingSelect
	StateName
	StatePhone
	StateAddress
	StateDelivery
	StateTimeChoice
	StatePayment
	StateVerifyPayment
	StateConfirm
	StateEnd
)

var flowStateNames = map[FlowState]string{
	StateItemSelect:      "item_select",
	StateItemEdit:        "item_edit",
	StatePackagingSelect: "packaging_select",
	StateName:            "name",
	StatePhone:           "phone",
	StateAddress:         "address",
	StateDelivery:        "delivery",
	StateTimeChoice:      "time_choice",
	StatePayment:         "payment",
	StateVerifyPayment:   "verify_payment",
	StateConfirm:         "confirm",
	StateEnd:             "end",
}

func (s FlowState) String() string {
	if name, ok := flowStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session is the ephemeral per-customer conversation state. It is a superset
// of Cart and is owned exclusively by the order flow; it is discarded when
// the conversation ends and rebuilt from the stored Cart on resume, minus
// the contact and payment fields.
type Session struct {
	CustomerID      string
	State           FlowState
	Items           map[string]int
	Total           int
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Delivery        DeliveryMethod
	RequestedTime   string
	Method          PaymentMethod
	PaymentVerified bool
	PaymentAmount   int
	PaymentStart    *time.Time
	Summary         string
	// AwaitingResumeChoice is set while the customer decides between the
	// stored cart and a fresh one.
	AwaitingResumeChoice bool
	// AwaitingTimeText is set after the customer asked for a specific time.
	AwaitingTimeText bool
	// CashOnly restricts the payment menu after a card window expired.
	CashOnly bool
	// EditingItem holds the key being adjusted in StateItemEdit.
	EditingItem string
}

// NewSession starts a session at item selection.
func NewSession(customerID string) *Session {
	return &Session{
		CustomerID: customerID,
		State:      StateItemSelect,
		Items:      make(map[string]int),
	}
}

// ToCart projects the session onto a durable cart snapshot.
func (s *Session) ToCart(hasSamsa, hasPackaging bool, now time.Time) *Cart {
	items := make(map[string]int, len(s.Items))
	for k, v := range s.Items {
		items[k] = v
	}
	return &Cart{
		CustomerID:   s.CustomerID,
		Items:        items,
		Total:        s.Total,
		HasSamsa:     hasSamsa,
		HasPackaging: hasPackaging,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// LoadCart rebuilds item state from a stored cart. Contact and payment
// fields are intentionally not restored.
func (s *Session) LoadCart(cart *Cart) {
	s.Items = make(map[string]int, len(cart.Items))
	for k, v := range cart.Items {
		s.Items[k] = v
	}
	s.Total = cart.Total
}
