package audithook

// Action constants for audit events.
const (
	// Customer actions
	ActionCustomerRegistered = "customer.registered"

	// Booking actions
	ActionBookingCreated   = "booking.created"
	ActionBookingUpdated   = "booking.updated"
	ActionBookingCompleted = "booking.completed"
	ActionBookingDeleted   = "booking.deleted"

	// Inventory actions
	ActionStockAdded     = "stock.added"
	ActionStockRemoved   = "stock.removed"
	ActionStockShortfall = "stock.shortfall"
	ActionStoveLent      = "stove.lent"
	ActionStoveReturned  = "stove.returned"

	// Payment history actions
	ActionTransactionRecorded = "transaction.recorded"

	// Retention actions
	ActionRetentionSweep = "retention.sweep"
)

// Resource constants for audit events.
const (
	ResourceCustomer    = "customer"
	ResourceBooking     = "booking"
	ResourceCylinder    = "cylinder"
	ResourceStove       = "stove"
	ResourceTransaction = "transaction"
	ResourceRetention   = "retention"
)

// Category constants for audit events.
const (
	CategoryCustomer  = "customer"
	CategoryDelivery  = "delivery"
	CategoryInventory = "inventory"
	CategoryPayment   = "payment"
	CategoryRetention = "retention"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
