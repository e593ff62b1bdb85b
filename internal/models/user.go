package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents the role of a user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// User is the local profile an authenticated handle points at.
// Identity issuance lives outside this service.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role  Role   `gorm:"type:varchar(20);default:'student'" json:"role"`

	// Relationships
	Enrollments  []CourseEnrollment `gorm:"foreignKey:UserID" json:"enrollments,omitempty"`
	Certificates []Certificate      `gorm:"foreignKey:UserID" json:"certificates,omitempty"`
}
