package model

import "time"

// TrackingStatus represents the workflow state of a request.
type TrackingStatus string

const (
	TrackingStatusPending  TrackingStatus = "Pending"
	TrackingStatusVerified TrackingStatus = "Verified"
	TrackingStatusApproved TrackingStatus = "Approved"
	TrackingStatusRejected TrackingStatus = "Rejected"
)

// Tracking holds the current workflow status of exactly one request.
// Version is bumped on every write and guards concurrent transitions.
type Tracking struct {
	ID                uint           `json:"trackingId" gorm:"primaryKey"`
	RequestID         uint           `json:"requestId" gorm:"uniqueIndex;not null"`
	Status            TrackingStatus `json:"trackingStatus" gorm:"type:varchar(20);not null;default:'Pending';index"`
	ApprovalDate      *time.Time     `json:"approvalDate"`
	ReimbursementDate *time.Time     `json:"reimbursementDate"`
	Version           uint           `json:"version" gorm:"not null;default:1"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Request *Request `json:"-" gorm:"foreignKey:RequestID"`
}
