package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDetails is the record of funds disbursed against an approved request.
// At most one exists per request.
type PaymentDetails struct {
	ID                uint            `json:"paymentId" gorm:"primaryKey"`
	RequestID         uint            `json:"requestId" gorm:"uniqueIndex;not null"`
	BankAccountNumber string          `json:"bankAccountNumber" gorm:"size:34;not null"`
	RoutingCode       string          `json:"routingCode" gorm:"size:20;not null"`
	Amount            decimal.Decimal `json:"paymentAmount" gorm:"type:decimal(20,2);not null"`
	PaymentDate       time.Time       `json:"paymentDate" gorm:"not null"`
	RecordedBy        string          `json:"recordedBy" gorm:"size:100"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Request *Request `json:"-" gorm:"foreignKey:RequestID"`
}

// TableName keeps the table name singular like the rest of the API surface.
func (PaymentDetails) TableName() string {
	return "payment_details"
}

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&Request{},
		&Tracking{},
		&TrackingEvent{},
		&PaymentDetails{},
	}
}
