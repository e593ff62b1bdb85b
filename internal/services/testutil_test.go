package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// newTestDB opens an isolated in-memory database with the full schema so
// unique-constraint behavior is exercised for real.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Name:  fmt.Sprintf("user-%d-%s", time.Now().UnixNano(), role),
		Email: fmt.Sprintf("u%d@example.com", time.Now().UnixNano()),
		Role:  role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, price int64) *models.Course {
	t.Helper()
	instructor := seedUser(t, db, models.RoleInstructor)
	course := &models.Course{
		InstructorID: instructor.ID,
		Title:        fmt.Sprintf("Course %d", time.Now().UnixNano()),
		Price:        &price,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func seedDiscountedCourse(t *testing.T, db *gorm.DB, price int64, typ models.DiscountType, value int64) *models.Course {
	t.Helper()
	course := seedCourse(t, db, price)
	course.DiscountType = &typ
	course.DiscountValue = value
	course.DiscountActive = true
	require.NoError(t, db.Save(course).Error)
	return course
}

func seedLessons(t *testing.T, db *gorm.DB, courseID uint, count int) []models.Lesson {
	t.Helper()
	module := &models.CourseModule{CourseID: courseID, Title: "Module 1"}
	require.NoError(t, db.Create(module).Error)

	lessons := make([]models.Lesson, count)
	for i := 0; i < count; i++ {
		lessons[i] = models.Lesson{ModuleID: module.ID, Title: fmt.Sprintf("Lesson %d", i+1), Position: i}
	}
	require.NoError(t, db.Create(&lessons).Error)
	return lessons
}

func intPtr(v int64) *int64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
