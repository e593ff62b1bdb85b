package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

const lessonSetCacheTTL = 10 * time.Minute

// CertificateService gates certificate issuance on lesson completion.
// Certificates are at-most-one per (user, course): the find-first check makes
// repeated requests return the existing row instead of minting another.
type CertificateService struct {
	db          *gorm.DB
	cache       *RedisCache
	enrollments *EnrollmentService
}

func NewCertificateService(db *gorm.DB, cache *RedisCache, enrollments *EnrollmentService) *CertificateService {
	return &CertificateService{db: db, cache: cache, enrollments: enrollments}
}

// GetOrIssueCertificate returns the certificate for (user, course), issuing
// it when the user has completed every lesson under the course module tree.
// The certificate write and the enrollment transition are one logical unit:
// if the transition failed after the certificate was created, a later call
// finds the certificate and retries the transition instead of re-creating.
func (s *CertificateService) GetOrIssueCertificate(ctx context.Context, userID, courseID uint, now time.Time) (*models.Certificate, error) {
	var existing models.Certificate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&existing).Error
	if err == nil {
		if err := s.completeEnrollment(ctx, userID, courseID); err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// paid access first: lesson progress alone must never certify an
	// inactive or cancelled enrollment
	var enr models.CourseEnrollment
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	if enr.AccessStatus != models.AccessStatusActive && enr.AccessStatus != models.AccessStatusCompleted {
		return nil, ErrInvalidTransition
	}

	done, err := s.courseCompleted(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, ErrCourseIncomplete
	}

	cert := models.Certificate{
		UserID:          userID,
		CourseID:        courseID,
		CertificateCode: newCertificateCode(courseID),
		IssuedAt:        now,
	}
	if err := s.db.WithContext(ctx).Create(&cert).Error; err != nil {
		return nil, err
	}

	if err := s.completeEnrollment(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// courseCompleted checks that every lesson under the course has a completion
// record for the user. The lesson-id set is cached; lesson authoring changes
// rarely compared to progress writes.
func (s *CertificateService) courseCompleted(ctx context.Context, userID, courseID uint) (bool, error) {
	lessonIDs, err := GetOrSet(s.cache, ctx,
		fmt.Sprintf("course_lessons:%d", courseID),
		lessonSetCacheTTL,
		func() ([]uint, error) {
			return s.lessonIDs(ctx, courseID)
		})
	if err != nil {
		return false, err
	}
	if len(lessonIDs) == 0 {
		// a course with no lessons cannot be completed
		return false, nil
	}

	var doneCount int64
	err = s.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ? AND is_done = ?", userID, lessonIDs, true).
		Count(&doneCount).Error
	if err != nil {
		return false, err
	}
	return doneCount == int64(len(lessonIDs)), nil
}

func (s *CertificateService) lessonIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Lesson{}).
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
		Where("course_modules.course_id = ?", courseID).
		Pluck("lessons.id", &ids).Error
	return ids, err
}

// completeEnrollment tolerates an already completed row so the transition
// can be retried after a partial failure; any other illegal state still
// surfaces as ErrInvalidTransition.
func (s *CertificateService) completeEnrollment(ctx context.Context, userID, courseID uint) error {
	return s.enrollments.CompleteEnrollment(ctx, userID, courseID)
}

func newCertificateCode(courseID uint) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("CERT-%d-%s", courseID, suffix)
}
