package models

import "fmt"

// NotificationService delivers order lifecycle events. Best-effort:
// delivery failures are logged, never surfaced to the caller.
type NotificationService interface {
	NotifyOrderEvent(event *OrderEvent)
}

// OrderEvent is one order lifecycle transition worth announcing.
type OrderEvent struct {
	OrderID uint64      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Chain   Blockchain  `json:"chain"`
	// Amount is the escrowed crypto amount in smallest units.
	Amount *BigInt `json:"amount"`
	// Currency is the order's fiat currency.
	Currency string `json:"currency"`
}

func (e *OrderEvent) String() string {
	return fmt.Sprintf("order %d is now %s (%s, %s %s units)", e.OrderID, e.Status, e.Chain, e.Amount, e.Currency)
}
