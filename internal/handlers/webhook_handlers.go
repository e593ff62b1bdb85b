package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

// SignatureVerifier checks the gateway's notification signature
type SignatureVerifier interface {
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type WebhookHandler struct {
	enrollments *services.EnrollmentService
	verifier    SignatureVerifier
}

func NewWebhookHandler(enrollments *services.EnrollmentService, verifier SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{enrollments: enrollments, verifier: verifier}
}

// MidtransCallback consumes the gateway's payment notification. The payload
// is trusted only after its SHA-512 signature checks out. Unknown order ids
// are logged and acknowledged with 2xx: the reference is permanently unknown
// and retrying cannot resolve it, so the gateway must stop redelivering.
func (h *WebhookHandler) MidtransCallback(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Unable to read payload")
	}

	var n services.GatewayNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid JSON payload")
	}
	if n.OrderID == "" || n.TransactionStatus == "" {
		return respondFail(c, http.StatusBadRequest, "Missing order_id or transaction_status")
	}

	if !h.verifier.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return respondFail(c, http.StatusForbidden, "Invalid signature")
	}

	err = h.enrollments.HandleGatewayNotification(c.Request().Context(), n, raw, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.Logger().Warnf("notification for unknown order %s acknowledged", n.OrderID)
			return respondOK(c, "Notification acknowledged", nil)
		}
		return err
	}

	return respondOK(c, "Notification processed", nil)
}
