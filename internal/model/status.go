package model

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaymentUploaded OrderStatus = "payment_uploaded"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAwaitingPayment,
	OrderStatusPaymentUploaded,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusAwaitingPayment, OrderStatusPaymentUploaded, OrderStatusCancelled,
	},
	OrderStatusAwaitingPayment: {
		OrderStatusPaymentUploaded, OrderStatusCancelled,
	},
	// a rejected receipt sends the order back to awaiting_payment
	OrderStatusPaymentUploaded: {
		OrderStatusPaymentUploaded, OrderStatusAwaitingPayment, OrderStatusConfirmed, OrderStatusCancelled,
	},
	OrderStatusConfirmed: {
		OrderStatusProcessing, OrderStatusCancelled,
	},
	OrderStatusProcessing: {
		OrderStatusCompleted, OrderStatusCancelled,
	},
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
