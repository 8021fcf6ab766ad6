package model

import "time"

// TrackingEvent records a single status change of a tracking record.
// Events are written asynchronously and never updated. They go away with
// their tracking row, and an event whose tracking is already gone is refused.
type TrackingEvent struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TrackingID uint           `json:"trackingId" gorm:"not null;index"`
	RequestID  uint           `json:"requestId" gorm:"not null;index"`
	FromStatus TrackingStatus `json:"fromStatus" gorm:"type:varchar(20)"`
	ToStatus   TrackingStatus `json:"toStatus" gorm:"type:varchar(20);not null"`
	Actor      string         `json:"actor" gorm:"size:100;not null"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"index"`

	Tracking *Tracking `json:"-" gorm:"foreignKey:TrackingID;constraint:OnDelete:CASCADE"`
}
