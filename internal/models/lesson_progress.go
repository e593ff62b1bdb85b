package models

import (
	"time"
)

// LessonProgress records that a user finished a lesson. Written by the
// lesson-progress collaborator; the certificate gate only reads it.
type LessonProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"completed_at"`

	UserID   uint `gorm:"uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson" json:"lesson_id"`
	CourseID uint `gorm:"index" json:"course_id"`
	IsDone   bool `gorm:"default:false" json:"is_done"`
}
