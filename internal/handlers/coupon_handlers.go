package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/middleware"
	"github.com/Arg39/backend-tanamin-sub001/internal/models"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

type CouponHandler struct {
	db      *gorm.DB
	coupons *services.CouponService
}

func NewCouponHandler(db *gorm.DB, coupons *services.CouponService) *CouponHandler {
	return &CouponHandler{db: db, coupons: coupons}
}

// Apply redeems a coupon for a (user, course) pair, recording at-most-once
// usage in the ledger.
func (h *CouponHandler) Apply(c echo.Context) error {
	var body struct {
		CourseID uint   `json:"course_id"`
		Code     string `json:"code"`
	}
	if err := c.Bind(&body); err != nil || body.CourseID == 0 || body.Code == "" {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	usage, err := h.coupons.ApplyCoupon(c.Request().Context(), middleware.UserID(c), body.CourseID, body.Code, time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Coupon applied", usage)
}

// Create is the admin operation to register a coupon
func (h *CouponHandler) Create(c echo.Context) error {
	var body struct {
		Code     string              `json:"code"`
		Type     models.DiscountType `json:"type"`
		Value    int64               `json:"value"`
		StartAt  *time.Time          `json:"start_at"`
		EndAt    *time.Time          `json:"end_at"`
		IsActive *bool               `json:"is_active"`
		MaxUsage *int64              `json:"max_usage"`
	}
	if err := c.Bind(&body); err != nil || body.Code == "" || body.Value <= 0 {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}
	if body.Type != models.DiscountPercent && body.Type != models.DiscountNominal {
		return respondFail(c, http.StatusBadRequest, "Coupon type must be percent or nominal")
	}

	coupon := models.Coupon{
		Code:     body.Code,
		Type:     body.Type,
		Value:    body.Value,
		StartAt:  body.StartAt,
		EndAt:    body.EndAt,
		IsActive: true,
		MaxUsage: body.MaxUsage,
	}
	if body.IsActive != nil {
		coupon.IsActive = *body.IsActive
	}

	if err := h.db.WithContext(c.Request().Context()).Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return respondFail(c, http.StatusConflict, "Coupon code already exists")
		}
		return err
	}
	return respondOK(c, "Coupon created", coupon)
}

// Update is the admin operation to change a coupon's flags or window
func (h *CouponHandler) Update(c echo.Context) error {
	couponID, err := parseUintParam(c, "id")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid coupon ID")
	}

	var coupon models.Coupon
	if err := h.db.WithContext(c.Request().Context()).First(&coupon, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondFail(c, http.StatusNotFound, "Coupon not found")
		}
		return err
	}

	var body struct {
		Value    *int64     `json:"value"`
		StartAt  *time.Time `json:"start_at"`
		EndAt    *time.Time `json:"end_at"`
		IsActive *bool      `json:"is_active"`
		MaxUsage *int64     `json:"max_usage"`
	}
	if err := c.Bind(&body); err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if body.Value != nil {
		updates["value"] = *body.Value
	}
	if body.StartAt != nil {
		updates["start_at"] = body.StartAt
	}
	if body.EndAt != nil {
		updates["end_at"] = body.EndAt
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if body.MaxUsage != nil {
		updates["max_usage"] = body.MaxUsage
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request().Context()).Model(&coupon).Updates(updates).Error; err != nil {
			return err
		}
	}
	return respondOK(c, "Coupon updated", coupon)
}

// Delete is the admin operation to retire a coupon. Usage rows stay; the
// ledger is append-only.
func (h *CouponHandler) Delete(c echo.Context) error {
	couponID, err := parseUintParam(c, "id")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid coupon ID")
	}

	res := h.db.WithContext(c.Request().Context()).Delete(&models.Coupon{}, couponID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return respondFail(c, http.StatusNotFound, "Coupon not found")
	}
	return respondOK(c, "Coupon deleted", nil)
}
