package entity

// Booking is the read-only summary returned by the external booking lookup
// service. It is used to enrich conversation responses and never gates
// conversation logic.
type Booking struct {
	PropertyID    string  `json:"property_id"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	PaymentStatus string  `json:"payment_status"`
	Status        string  `json:"status"`
	TotalAmount   float64 `json:"total_amount"`
	Currency      string  `json:"currency"`
}
