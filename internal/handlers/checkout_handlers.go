package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Arg39/backend-tanamin-sub001/internal/middleware"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// BuyNowContent returns the single-course checkout preview. Read-only; no
// session or enrollment is created here. An optional ?coupon= query previews
// a coupon code without consuming it.
func (h *CheckoutHandler) BuyNowContent(c echo.Context) error {
	courseID, err := parseUintParam(c, "course_id")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid course ID")
	}

	content, err := h.checkout.GetBuyNowContent(c.Request().Context(), middleware.UserID(c), courseID, c.QueryParam("coupon"), time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Checkout preview", content)
}

// CartContent returns the aggregate preview over all unpaid cart line items
func (h *CheckoutHandler) CartContent(c echo.Context) error {
	content, err := h.checkout.GetCartContent(c.Request().Context(), middleware.UserID(c), time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	if content.IsEmpty {
		return respondOK(c, "Cart is empty", content)
	}
	return respondOK(c, "Cart preview", content)
}

// AddToCart puts a course into the user's open cart
func (h *CheckoutHandler) AddToCart(c echo.Context) error {
	var body struct {
		CourseID uint `json:"course_id"`
	}
	if err := c.Bind(&body); err != nil || body.CourseID == 0 {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	enr, err := h.checkout.AddToCart(c.Request().Context(), middleware.UserID(c), body.CourseID, time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Course added to cart", enr)
}

// CheckoutBuyNow places a single-item order and returns the gateway handoff
func (h *CheckoutHandler) CheckoutBuyNow(c echo.Context) error {
	var body struct {
		CourseID   uint   `json:"course_id"`
		CouponCode string `json:"coupon_code"`
	}
	if err := c.Bind(&body); err != nil || body.CourseID == 0 {
		return respondFail(c, http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.checkout.CheckoutBuyNow(c.Request().Context(), middleware.UserID(c), body.CourseID, body.CouponCode, time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Order placed", result)
}

// Order returns one of the caller's checkout sessions with its line items,
// for polling payment status after the gateway redirect
func (h *CheckoutHandler) Order(c echo.Context) error {
	sessionID, err := parseUintParam(c, "session_id")
	if err != nil {
		return respondFail(c, http.StatusBadRequest, "Invalid session ID")
	}

	session, err := h.checkout.GetOrder(c.Request().Context(), middleware.UserID(c), sessionID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Order status", session)
}

// CheckoutCart places the multi-item order over the open cart
func (h *CheckoutHandler) CheckoutCart(c echo.Context) error {
	result, err := h.checkout.CheckoutCart(c.Request().Context(), middleware.UserID(c), time.Now())
	if err != nil {
		return respondDomainError(c, err)
	}
	return respondOK(c, "Order placed", result)
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	val, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}
