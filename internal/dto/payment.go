package dto

// PaymentIntentRequest asks the gateway for a client secret. When ClassID is present the
// seat is checked before anything is charged.
type PaymentIntentRequest struct {
	Price   float64 `json:"price" validate:"required,gt=0"`
	ClassID string  `json:"classId" validate:"omitempty"`
}

// PaymentIntentResponse returns the gateway client secret.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// FinalizePaymentRequest is the client-submitted payment confirmation. Raw holds the request
// body verbatim and is persisted as payment metadata.
type FinalizePaymentRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	ClassID         string  `json:"classId" validate:"omitempty"`
	ClassName       string  `json:"className" validate:"required"`
	InstructorEmail string  `json:"instructorEmail" validate:"required,email"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	TransactionID   string  `json:"transactionId" validate:"omitempty,max=255"`
	Raw             []byte  `json:"-"`
}

// ReconcileResponse reports the outcome of a reconciliation attempt.
type ReconcileResponse struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}
