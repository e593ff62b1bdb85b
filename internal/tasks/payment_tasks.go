package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/midtrans/midtrans-go/coreapi"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

// TaskReconcilePendingSessions is the name of the recurring job that drives
// session expiry. Webhooks are the primary path; this job catches sessions
// whose notifications were lost or whose buyers walked away.
const TaskReconcilePendingSessions = "reconcile_pending_sessions"

const defaultReconcileAgeMinutes = 60

// StatusChecker is the slice of the gateway the reconciliation job needs
type StatusChecker interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, error)
}

// DefineTasks registers all task handlers with the global registry
func DefineTasks(checker StatusChecker, enrollments *services.EnrollmentService) {
	RegisterHandler(TaskReconcilePendingSessions, reconcilePendingSessions(checker, enrollments))
}

// reconcilePendingSessions polls the gateway for pending sessions older than
// the configured age and applies the same status mapping as the webhook
// path. Sessions not yet handed to the gateway (no snap token) are skipped.
func reconcilePendingSessions(checker StatusChecker, enrollments *services.EnrollmentService) TaskHandler {
	return func(ctx context.Context, db *gorm.DB, args map[string]interface{}) (map[string]interface{}, error) {
		ageMinutes := defaultReconcileAgeMinutes
		if v, ok := args["older_than_minutes"].(float64); ok && v > 0 {
			ageMinutes = int(v)
		}

		now := time.Now()
		cutoff := now.Add(-time.Duration(ageMinutes) * time.Minute)

		var sessions []models.CheckoutSession
		err := db.WithContext(ctx).
			Where("payment_status = ? AND snap_token <> '' AND created_at <= ?",
				models.PaymentStatusPending, cutoff).
			Find(&sessions).Error
		if err != nil {
			return nil, fmt.Errorf("fetch pending sessions: %w", err)
		}

		reconciled, skipped := 0, 0
		for i := range sessions {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			session := &sessions[i]

			resp, err := checker.CheckTransaction(session.GatewayOrderID)
			if err != nil {
				log.Printf("reconcile: check %s failed: %v", session.GatewayOrderID, err)
				skipped++
				continue
			}

			n := services.GatewayNotification{
				OrderID:           resp.OrderID,
				TransactionID:     resp.TransactionID,
				TransactionStatus: resp.TransactionStatus,
				FraudStatus:       resp.FraudStatus,
				StatusCode:        resp.StatusCode,
				GrossAmount:       resp.GrossAmount,
			}
			raw, _ := json.Marshal(resp)
			if err := enrollments.HandleGatewayNotification(ctx, n, raw, now); err != nil {
				if errors.Is(err, services.ErrOrderNotFound) {
					skipped++
					continue
				}
				log.Printf("reconcile: apply %s failed: %v", session.GatewayOrderID, err)
				skipped++
				continue
			}
			reconciled++
		}

		return map[string]interface{}{
			"checked":    len(sessions),
			"reconciled": reconciled,
			"skipped":    skipped,
		}, nil
	}
}
