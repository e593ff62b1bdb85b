package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

type stubVerifier struct {
	ok bool
}

func (v stubVerifier) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return v.ok
}

func newWebhookFixture(t *testing.T, verifier stubVerifier) (*gorm.DB, *WebhookHandler) {
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

	require.NoError(t, services.AutoMigrate(db))

	enrollments := services.NewEnrollmentService(db)
	return db, NewWebhookHandler(enrollments, verifier)
}

func postNotification(t *testing.T, h *WebhookHandler, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.MidtransCallback(c)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func notificationBody(orderID, status string) string {
	return fmt.Sprintf(`{
		"order_id": %q,
		"transaction_id": "txn-1",
		"transaction_status": %q,
		"status_code": "200",
		"gross_amount": "95200.00",
		"signature_key": "irrelevant-stub-decides"
	}`, orderID, status)
}

func TestMidtransCallbackRejectsBadSignature(t *testing.T) {
	db, h := newWebhookFixture(t, stubVerifier{ok: false})

	rec, resp := postNotification(t, h, notificationBody("checkout-1-x", "settlement"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)

	// a rejected payload must leave no trace
	var count int64
	require.NoError(t, db.Model(&models.PaymentCallbackHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMidtransCallbackRejectsMalformedPayload(t *testing.T) {
	_, h := newWebhookFixture(t, stubVerifier{ok: true})

	t.Run("invalid json", func(t *testing.T) {
		rec, resp := postNotification(t, h, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("missing order id", func(t *testing.T) {
		rec, resp := postNotification(t, h, notificationBody("", "settlement"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("missing transaction status", func(t *testing.T) {
		rec, resp := postNotification(t, h, notificationBody("checkout-1-x", ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})
}

func TestMidtransCallbackAcknowledgesUnknownOrder(t *testing.T) {
	db, h := newWebhookFixture(t, stubVerifier{ok: true})

	rec, resp := postNotification(t, h, notificationBody("checkout-99-unknown", "settlement"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Notification acknowledged", resp.Message)

	// the raw payload is still kept for audit
	var count int64
	require.NoError(t, db.Model(&models.PaymentCallbackHistory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMidtransCallbackSettlementActivatesEnrollment(t *testing.T) {
	db, h := newWebhookFixture(t, stubVerifier{ok: true})

	user := &models.User{Name: "student", Email: "student@example.com", Role: models.RoleStudent}
	require.NoError(t, db.Create(user).Error)
	price := int64(100000)
	instructor := &models.User{Name: "instructor", Email: "instructor@example.com", Role: models.RoleInstructor}
	require.NoError(t, db.Create(instructor).Error)
	course := &models.Course{InstructorID: instructor.ID, Title: "Go Basics", Price: &price}
	require.NoError(t, db.Create(course).Error)

	session := &models.CheckoutSession{
		UserID:         user.ID,
		CheckoutType:   models.CheckoutTypeBuyNow,
		PaymentStatus:  models.PaymentStatusPending,
		GatewayOrderID: "checkout-1-handler-test",
	}
	require.NoError(t, db.Create(session).Error)
	enr := &models.CourseEnrollment{
		UserID:            user.ID,
		CourseID:          course.ID,
		CheckoutSessionID: &session.ID,
		Price:             100000,
		PaymentType:       models.PaymentTypeMidtrans,
		AccessStatus:      models.AccessStatusInactive,
		EnrolledAt:        time.Now(),
	}
	require.NoError(t, db.Create(enr).Error)

	rec, resp := postNotification(t, h, notificationBody(session.GatewayOrderID, "settlement"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Notification processed", resp.Message)

	var gotSession models.CheckoutSession
	require.NoError(t, db.First(&gotSession, session.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, gotSession.PaymentStatus)
	require.NotNil(t, gotSession.PaidAt)

	var gotEnr models.CourseEnrollment
	require.NoError(t, db.First(&gotEnr, enr.ID).Error)
	assert.Equal(t, models.AccessStatusActive, gotEnr.AccessStatus)
}
