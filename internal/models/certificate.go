package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is issued once per (user, course) when every lesson is done.
// Immutable after creation; repeated requests return the existing row.
type Certificate struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID          uint      `gorm:"index:idx_certificate_user_course" json:"user_id"`
	CourseID        uint      `gorm:"index:idx_certificate_user_course" json:"course_id"`
	CertificateCode string    `gorm:"type:varchar(100);uniqueIndex" json:"certificate_code"`
	IssuedAt        time.Time `json:"issued_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
