package booking

var deliveryRank = map[DeliveryStatus]int{
	StatusBooked:    0,
	StatusInTransit: 1,
	StatusDelivered: 2,
}

var paymentRank = map[PaymentStatus]int{
	PaymentPending: 0,
	PaymentPartial: 1,
	PaymentPaid:    2,
}

// CanMoveDelivery reports whether the delivery axis may move from -> to.
// Booked, InTransit and Delivered only move forward; any non-terminal status
// may move to Cancelled. Staying put is always allowed.
func CanMoveDelivery(from, to DeliveryStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return deliveryRank[to] > deliveryRank[from]
}

// CanMovePayment reports whether the payment axis may move from -> to.
// Payment only moves forward, except Partial which may repeat with a new amount.
func CanMovePayment(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	return paymentRank[to] > paymentRank[from]
}
