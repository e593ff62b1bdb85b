package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// GatewayNotification is the subset of a gateway webhook payload the state
// machine acts on. The signature must already be verified at the boundary.
type GatewayNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// EnrollmentService owns the enrollment lifecycle and the session payment
// state machine driven by gateway events.
type EnrollmentService struct {
	db *gorm.DB
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// EnsureEnrollment finds or creates the (user, course) row at inactive.
// An existing row still unpaid is reused across repeated checkout attempts;
// a cancelled row is revived to inactive so an abandoned checkout can be
// retried. Rows already covered by a paid session reject with
// ErrAlreadyEnrolled.
func (s *EnrollmentService) EnsureEnrollment(ctx context.Context, userID, courseID uint, now time.Time) (*models.CourseEnrollment, error) {
	var enr models.CourseEnrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enr).Error
	if err == nil {
		switch enr.AccessStatus {
		case models.AccessStatusInactive:
			return &enr, nil
		case models.AccessStatusCancelled:
			updates := map[string]interface{}{
				"access_status":       models.AccessStatusInactive,
				"checkout_session_id": nil,
				"coupon_id":           nil,
				"expired_at":          nil,
			}
			if err := s.db.WithContext(ctx).Model(&enr).Updates(updates).Error; err != nil {
				return nil, err
			}
			enr.AccessStatus = models.AccessStatusInactive
			enr.CheckoutSessionID = nil
			enr.CouponID = nil
			enr.ExpiredAt = nil
			return &enr, nil
		default:
			return nil, ErrAlreadyEnrolled
		}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enr = models.CourseEnrollment{
		UserID:       userID,
		CourseID:     courseID,
		AccessStatus: models.AccessStatusInactive,
		EnrolledAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&enr).Error; err != nil {
		// Concurrent checkout attempts race on the unique pair; the loser
		// picks up the winner's row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.EnsureEnrollment(ctx, userID, courseID, now)
		}
		return nil, err
	}
	return &enr, nil
}

// HasPaidAccess reports whether the user already holds paid access to the
// course (active or completed enrollment).
func (s *EnrollmentService) HasPaidAccess(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CourseEnrollment{}).
		Where("user_id = ? AND course_id = ? AND access_status IN ?",
			userID, courseID,
			[]models.AccessStatus{models.AccessStatusActive, models.AccessStatusCompleted}).
		Count(&count).Error
	return count > 0, err
}

// MapTransactionStatus maps a gateway transaction status to the session
// payment status: settlement and accepted captures pay the session, cancel,
// expire, deny and denied captures expire it, anything else stays pending.
// A capture pays only when fraud screening accepted it (or reported nothing);
// a challenged capture waits for the follow-up event.
func MapTransactionStatus(transactionStatus, fraudStatus string) models.PaymentStatus {
	switch transactionStatus {
	case "settlement":
		return models.PaymentStatusPaid
	case "capture":
		switch fraudStatus {
		case "", "accept":
			return models.PaymentStatusPaid
		case "deny":
			return models.PaymentStatusExpired
		default:
			return models.PaymentStatusPending
		}
	case "cancel", "expire", "deny":
		return models.PaymentStatusExpired
	default:
		return models.PaymentStatusPending
	}
}

// HandleGatewayNotification applies a webhook event to the owning session.
// Delivery is at-least-once and possibly out of order: terminal statuses are
// monotone, so replays and regressions after paid/expired are no-ops.
// Every payload is recorded to the callback history first, unknown order ids
// included; the caller acknowledges those after logging.
func (s *EnrollmentService) HandleGatewayNotification(ctx context.Context, n GatewayNotification, raw json.RawMessage, now time.Time) error {
	history := models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		GatewayOrderID: n.OrderID,
		Metadata:       raw,
	}
	if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("failed to record payment callback history: %v", err)
	}

	var session models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("gateway_order_id = ?", n.OrderID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	next := MapTransactionStatus(n.TransactionStatus, n.FraudStatus)

	if session.PaymentStatus.IsTerminal() {
		if next != session.PaymentStatus {
			log.Printf("ignoring gateway event %q for terminal session %s (status %s)",
				n.TransactionStatus, session.GatewayOrderID, session.PaymentStatus)
		}
		return nil
	}

	switch next {
	case models.PaymentStatusPaid:
		return s.markSessionPaid(ctx, &session, n, now)
	case models.PaymentStatusExpired:
		return s.markSessionExpired(ctx, &session, n, now)
	default:
		// still pending; keep the latest gateway view for observability
		return s.db.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
			"gateway_transaction_id":     n.TransactionID,
			"gateway_transaction_status": n.TransactionStatus,
			"gateway_fraud_status":       n.FraudStatus,
		}).Error
	}
}

func (s *EnrollmentService) markSessionPaid(ctx context.Context, session *models.CheckoutSession, n GatewayNotification, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(map[string]interface{}{
			"payment_status":             models.PaymentStatusPaid,
			"gateway_transaction_id":     n.TransactionID,
			"gateway_transaction_status": n.TransactionStatus,
			"gateway_fraud_status":       n.FraudStatus,
			"paid_at":                    now,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.CourseEnrollment{}).
			Where("checkout_session_id = ? AND access_status = ?", session.ID, models.AccessStatusInactive).
			Updates(map[string]interface{}{
				"access_status": models.AccessStatusActive,
				"paid_at":       now,
			}).Error
	})
}

func (s *EnrollmentService) markSessionExpired(ctx context.Context, session *models.CheckoutSession, n GatewayNotification, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(map[string]interface{}{
			"payment_status":             models.PaymentStatusExpired,
			"gateway_transaction_id":     n.TransactionID,
			"gateway_transaction_status": n.TransactionStatus,
			"gateway_fraud_status":       n.FraudStatus,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.CourseEnrollment{}).
			Where("checkout_session_id = ? AND access_status = ?", session.ID, models.AccessStatusInactive).
			Updates(map[string]interface{}{
				"access_status": models.AccessStatusCancelled,
				"expired_at":    now,
			}).Error
	})
}

// CompleteEnrollment moves active -> completed. Completing anything but an
// active enrollment is rejected; certifying unpaid access must never succeed
// silently. An already completed row is a no-op so the certificate gate can
// retry the transition.
func (s *EnrollmentService) CompleteEnrollment(ctx context.Context, userID, courseID uint) error {
	var enr models.CourseEnrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}

	switch enr.AccessStatus {
	case models.AccessStatusCompleted:
		return nil
	case models.AccessStatusActive:
		return s.db.WithContext(ctx).Model(&enr).
			Update("access_status", models.AccessStatusCompleted).Error
	default:
		return ErrInvalidTransition
	}
}
