package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

func newCertificateFixture(t *testing.T) (*gorm.DB, *CertificateService) {
	t.Helper()
	db := newTestDB(t)
	enrollments := NewEnrollmentService(db)
	// nil cache: the gate degrades to direct lesson queries
	return db, NewCertificateService(db, nil, enrollments)
}

func completeLessons(t *testing.T, db *gorm.DB, userID uint, lessons []models.Lesson) {
	t.Helper()
	for _, lesson := range lessons {
		require.NoError(t, db.Create(&models.LessonProgress{
			UserID: userID, LessonID: lesson.ID, IsDone: true,
		}).Error)
	}
}

func activeEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) *models.CourseEnrollment {
	t.Helper()
	enr := &models.CourseEnrollment{
		UserID: userID, CourseID: courseID,
		AccessStatus: models.AccessStatusActive,
		PaymentType:  models.PaymentTypeMidtrans,
	}
	require.NoError(t, db.Create(enr).Error)
	return enr
}

func TestCertificateIncompleteCourse(t *testing.T) {
	db, svc := newCertificateFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	course := seedCourse(t, db, 100000)
	lessons := seedLessons(t, db, course.ID, 3)
	activeEnrollment(t, db, user.ID, course.ID)

	// two of three lessons done
	completeLessons(t, db, user.ID, lessons[:2])

	_, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
	assert.ErrorIs(t, err, ErrCourseIncomplete)

	// no row was created
	var count int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCertificateIssuedOnceAndIdempotent(t *testing.T) {
	db, svc := newCertificateFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	course := seedCourse(t, db, 100000)
	lessons := seedLessons(t, db, course.ID, 3)
	enr := activeEnrollment(t, db, user.ID, course.ID)
	completeLessons(t, db, user.ID, lessons)

	first, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, first.CertificateCode)

	var gotEnr models.CourseEnrollment
	require.NoError(t, db.First(&gotEnr, enr.ID).Error)
	assert.Equal(t, models.AccessStatusCompleted, gotEnr.AccessStatus)

	second, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CertificateCode, second.CertificateCode)

	var count int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCertificateNeverCertifiesUnpaidAccess(t *testing.T) {
	db, svc := newCertificateFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	course := seedCourse(t, db, 100000)
	lessons := seedLessons(t, db, course.ID, 2)
	completeLessons(t, db, user.ID, lessons)

	t.Run("no enrollment", func(t *testing.T) {
		_, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	})

	enr := &models.CourseEnrollment{
		UserID: user.ID, CourseID: course.ID,
		AccessStatus: models.AccessStatusInactive,
	}
	require.NoError(t, db.Create(enr).Error)

	t.Run("inactive enrollment", func(t *testing.T) {
		_, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	require.NoError(t, db.Model(enr).Update("access_status", models.AccessStatusCancelled).Error)

	t.Run("cancelled enrollment", func(t *testing.T) {
		_, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	var count int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCertificateCourseWithoutLessons(t *testing.T) {
	db, svc := newCertificateFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	course := seedCourse(t, db, 100000)
	activeEnrollment(t, db, user.ID, course.ID)

	_, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
	assert.ErrorIs(t, err, ErrCourseIncomplete)
}

func TestCertificateRetriesEnrollmentTransition(t *testing.T) {
	db, svc := newCertificateFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	course := seedCourse(t, db, 100000)
	enr := activeEnrollment(t, db, user.ID, course.ID)

	// certificate exists but the enrollment transition was lost
	cert := &models.Certificate{
		UserID: user.ID, CourseID: course.ID,
		CertificateCode: "CERT-TEST-RETRY",
		IssuedAt:        time.Now(),
	}
	require.NoError(t, db.Create(cert).Error)

	got, err := svc.GetOrIssueCertificate(ctx, user.ID, course.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "CERT-TEST-RETRY", got.CertificateCode)

	var gotEnr models.CourseEnrollment
	require.NoError(t, db.First(&gotEnr, enr.ID).Error)
	assert.Equal(t, models.AccessStatusCompleted, gotEnr.AccessStatus)
}

func TestCertificateCodeShape(t *testing.T) {
	code := newCertificateCode(42)
	assert.Contains(t, code, "CERT-42-")
	assert.Len(t, code, len("CERT-42-")+12)
	assert.NotEqual(t, code, newCertificateCode(42))
}
