package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Arg39/backend-tanamin-sub001/internal/middleware"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

type CertificateHandler struct {
	certificates *services.CertificateService
}

func NewCertificateHandler(certificates *services.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// GetOrIssue returns the caller's certificate for a course, issuing it on
// first request after full completion. Idempotent: repeated calls return the
// same certificate code.
func (h *CertificateHandler) GetOrIssue(c echo.Context) error {
	courseID, err := parseUintParam(c, "course_id")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid course ID")
	}

	cert, err := h.certificates.GetOrIssueCertificate(c.Request().Context(), middleware.UserID(c), courseID, time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Certificate", cert)
}
