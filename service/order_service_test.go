package service

import (
	"strings"
	"testing"

	"samsariya-backend/model"

	"github.com/rs/zerolog"
)

func newStatusMessageService() *OrderService {
	return NewOrderService(zerolog.Nop(), nil, nil, nil, NewDefaultTextResolver())
}

func TestStatusLine(t *testing.T) {
	s := newStatusMessageService()
	texts := NewDefaultTextResolver()

	testCases := []struct {
		status model.OrderStatus
		want   string
	}{
		{model.OrderStatusPreparing, texts.Resolve("status_preparing", "ru")},
		{model.OrderStatusReady, texts.Resolve("status_ready", "ru")},
		{model.OrderStatusDelivered, texts.Resolve("status_delivered", "ru")},
		{model.OrderStatusCancelled, texts.Resolve("status_cancelled", "ru")},
		{model.OrderStatusConfirmed, texts.Resolve("status_confirmed", "ru")},
	}

	for _, tc := range testCases {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := s.statusLine(tc.status); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStatusLineFallsBackToGeneric(t *testing.T) {
	s := newStatusMessageService()
	got := s.statusLine(model.OrderStatusNew)
	if !strings.Contains(got, string(model.OrderStatusNew)) {
		t.Errorf("the generic status line %q should carry the raw status", got)
	}
}

func TestBuildStatusMessage(t *testing.T) {
	s := newStatusMessageService()
	order := &model.Order{
		ShortID: "#A1B2",
		Total:   32000,
		Summary: "Самса с говядиной — 2 шт",
	}

	msg := s.buildStatusMessage(order, model.OrderStatusReady)

	for _, part := range []string{"#A1B2", "32000", "Самса с говядиной", "Ваш заказ готов!"} {
		if !strings.Contains(msg, part) {
			t.Errorf("status message is missing %q:\n%s", part, msg)
		}
	}
}
