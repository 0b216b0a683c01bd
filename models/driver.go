package models

import "time"

// Driver is an authenticated truck driver, identified by phone number.
type Driver struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Phone          string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	HashedPassword string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"-"`
}
