package coupon

// Lifecycle event types published for every successful transition.
const (
	EventIssued    = "coupon.issued"
	EventActivated = "coupon.activated"
	EventRedeemed  = "coupon.redeemed"
	EventCancelled = "coupon.cancelled"
)
