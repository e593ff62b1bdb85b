package models

import (
	"time"

	"gorm.io/gorm"
)

// DiscountType represents how a discount value is interpreted
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountNominal DiscountType = "nominal"
)

// Course represents a purchasable course owned by an instructor.
// Price is in minor currency units and stays nil until the instructor sets it.
type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InstructorID uint   `gorm:"index" json:"instructor_id"`
	Title        string `gorm:"type:varchar(255)" json:"title"`
	Price        *int64 `json:"price"`

	// Discount descriptor. The discount is in effect only while DiscountActive
	// is true and now falls within [DiscountStartAt, DiscountEndAt]; a nil bound
	// is treated as unbounded on that side.
	DiscountType    *DiscountType `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue   int64         `json:"discount_value"`
	DiscountStartAt *time.Time    `json:"discount_start_at"`
	DiscountEndAt   *time.Time    `json:"discount_end_at"`
	DiscountActive  bool          `gorm:"default:false" json:"discount_active"`

	// Relationships
	Instructor User           `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Modules    []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

// CourseModule groups lessons inside a course
type CourseModule struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CourseID uint   `gorm:"index" json:"course_id"`
	Title    string `gorm:"type:varchar(255)" json:"title"`
	Position int    `gorm:"default:0" json:"position"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

// Lesson is the unit whose completion gates certificate issuance.
// Content authoring is out of scope; only identity matters here.
type Lesson struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ModuleID uint   `gorm:"index" json:"module_id"`
	Title    string `gorm:"type:varchar(255)" json:"title"`
	Position int    `gorm:"default:0" json:"position"`
}
