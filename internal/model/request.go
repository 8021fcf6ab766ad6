package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is an employee-submitted reimbursement claim.
type Request struct {
	ID              uint            `json:"requestId" gorm:"primaryKey"`
	Username        string          `json:"username" gorm:"size:100;not null;index"`
	ExpenseCategory string          `json:"expenseCategory" gorm:"size:100;not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	DocumentURL     string          `json:"document" gorm:"size:512"`
	Description     string          `json:"description" gorm:"type:text"`
	SubmittedAt     time.Time       `json:"requestDate" gorm:"not null"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
