package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/middleware"
	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// ProgressHandler is the lesson-progress collaborator's write surface.
// The certificate gate only ever reads what lands here.
type ProgressHandler struct {
	db *gorm.DB
}

func NewProgressHandler(db *gorm.DB) *ProgressHandler {
	return &ProgressHandler{db: db}
}

// MarkLessonDone upserts a completion record for the caller
func (h *ProgressHandler) MarkLessonDone(c echo.Context) error {
	var body struct {
		LessonID uint `json:"lesson_id"`
		CourseID uint `json:"course_id"`
	}
	if err := c.Bind(&body); err != nil || body.LessonID == 0 {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	userID := middleware.UserID(c)
	ctx := c.Request().Context()

	var progress models.LessonProgress
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, body.LessonID).
		First(&progress).Error
	switch {
	case err == nil:
		if !progress.IsDone {
			if err := h.db.WithContext(ctx).Model(&progress).Update("is_done", true).Error; err != nil {
				return err
			}
			progress.IsDone = true
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		progress = models.LessonProgress{
			UserID:   userID,
			LessonID: body.LessonID,
			CourseID: body.CourseID,
			IsDone:   true,
		}
		if err := h.db.WithContext(ctx).Create(&progress).Error; err != nil {
			// concurrent mark for the same lesson; someone else won
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
		}
	default:
		return err
	}

	return respondOK(c, "Lesson marked as done", progress)
}
