package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// SnapGateway is the slice of the payment gateway the checkout flow needs
type SnapGateway interface {
	CreateTransaction(orderID string, amount int64, param *snap.Request) (*snap.Response, error)
	CancelTransaction(orderID string) error
}

// CourseLine is the per-course breakdown inside a checkout preview or order
type CourseLine struct {
	CourseID           uint   `json:"course_id"`
	Title              string `json:"title"`
	Base               int64  `json:"base"`
	DiscountAmount     int64  `json:"discount_amount"`
	PriceAfterDiscount int64  `json:"price_after_discount"`
}

// BuyNowContent is the single-item checkout preview
type BuyNowContent struct {
	Course          CourseLine `json:"course"`
	AlreadyEnrolled bool       `json:"already_enrolled"`
	CouponCode      string     `json:"coupon_code,omitempty"`
	Quote           Quote      `json:"quote"`
}

// CartContent is the multi-item checkout preview. IsEmpty is set when the
// user has no open cart or it holds no unpaid line items; totals are zero.
type CartContent struct {
	Items   []CourseLine `json:"items"`
	IsEmpty bool         `json:"is_empty"`
	Quote   Quote        `json:"quote"`
}

// OrderResult is what the client needs to hand off to the gateway redirect
type OrderResult struct {
	SessionID   uint   `json:"session_id"`
	OrderID     string `json:"order_id"`
	GrandTotal  int64  `json:"grand_total"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Free        bool   `json:"free"`
}

// CheckoutService creates and prices checkout sessions. Previews are
// side-effect free; session and enrollment writes happen only in the
// order-placement operations.
type CheckoutService struct {
	db          *gorm.DB
	coupons     *CouponService
	enrollments *EnrollmentService
	gateway     SnapGateway
	taxRate     float64
}

func NewCheckoutService(db *gorm.DB, coupons *CouponService, enrollments *EnrollmentService, gateway SnapGateway) *CheckoutService {
	return &CheckoutService{
		db:          db,
		coupons:     coupons,
		enrollments: enrollments,
		gateway:     gateway,
		taxRate:     DefaultTaxRate,
	}
}

// GetBuyNowContent builds the read-only single-course preview: effective
// price at now and the already-enrolled flag. A supplied coupon code is
// validated without being consumed; otherwise a usage already recorded for
// this (user, course) is reused in the displayed total.
func (s *CheckoutService) GetBuyNowContent(ctx context.Context, userID, courseID uint, couponCode string, now time.Time) (*BuyNowContent, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	breakdown := EffectivePrice(course, now)
	line := courseLine(course, breakdown)

	enrolled, err := s.enrollments.HasPaidAccess(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	var couponDiscount int64
	if couponCode != "" {
		coupon, err := s.coupons.PreviewCoupon(ctx, userID, courseID, couponCode, now)
		if err != nil {
			return nil, err
		}
		couponDiscount = CouponDeduction(coupon, breakdown.PriceAfterDiscount)
	} else {
		usage, err := s.coupons.RecordedUsage(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		if usage != nil {
			couponDiscount = CouponDeduction(&usage.Coupon, breakdown.PriceAfterDiscount)
			couponCode = usage.Coupon.Code
		}
	}

	return &BuyNowContent{
		Course:          line,
		AlreadyEnrolled: enrolled,
		CouponCode:      couponCode,
		Quote:           BuildQuote(breakdown.PriceAfterDiscount, couponDiscount, s.taxRate),
	}, nil
}

// GetCartContent prices every unpaid line item under the user's open cart
// session. Per-line discounts are computed at now; tax applies once on the
// sum. No open cart or no unpaid items yields an explicit empty result.
func (s *CheckoutService) GetCartContent(ctx context.Context, userID uint, now time.Time) (*CartContent, error) {
	session, err := s.openCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &CartContent{IsEmpty: true}, nil
	}

	lines, subtotal, couponDiscount, err := s.priceCartLines(ctx, session.ID, now)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return &CartContent{IsEmpty: true}, nil
	}

	return &CartContent{
		Items: lines,
		Quote: BuildQuote(subtotal, couponDiscount, s.taxRate),
	}, nil
}

// AddToCart places a course into the user's open cart, creating the cart
// session on first use. The enrollment unique pair keeps retried adds and
// concurrent submissions down to one row.
func (s *CheckoutService) AddToCart(ctx context.Context, userID, courseID uint, now time.Time) (*models.CourseEnrollment, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Price == nil {
		return nil, ErrPriceNotSet
	}

	session, err := s.openCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &models.CheckoutSession{
			UserID:         userID,
			CheckoutType:   models.CheckoutTypeCart,
			PaymentStatus:  models.PaymentStatusPending,
			GatewayOrderID: newOrderID(userID),
		}
		if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
			return nil, err
		}
	}

	enr, err := s.enrollments.EnsureEnrollment(ctx, userID, courseID, now)
	if err != nil {
		return nil, err
	}

	if enr.CheckoutSessionID == nil || *enr.CheckoutSessionID != session.ID {
		if err := s.db.WithContext(ctx).Model(enr).
			Update("checkout_session_id", session.ID).Error; err != nil {
			return nil, err
		}
		enr.CheckoutSessionID = &session.ID
	}
	return enr, nil
}

// CheckoutBuyNow places a single-item order: snapshots the price, consumes
// the coupon when a code is supplied (reusing a recorded usage otherwise),
// creates the session and hands the amount to the gateway. A zero grand
// total settles immediately as a free enrollment.
func (s *CheckoutService) CheckoutBuyNow(ctx context.Context, userID, courseID uint, couponCode string, now time.Time) (*OrderResult, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Price == nil {
		return nil, ErrPriceNotSet
	}

	enr, err := s.enrollments.EnsureEnrollment(ctx, userID, courseID, now)
	if err != nil {
		return nil, err
	}

	breakdown := EffectivePrice(course, now)

	var couponDiscount int64
	var couponID *uint
	if couponCode != "" {
		usage, err := s.coupons.ApplyCoupon(ctx, userID, courseID, couponCode, now)
		if err != nil {
			return nil, err
		}
		couponDiscount = CouponDeduction(&usage.Coupon, breakdown.PriceAfterDiscount)
		couponID = &usage.CouponID
	} else {
		usage, err := s.coupons.RecordedUsage(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		if usage != nil {
			couponDiscount = CouponDeduction(&usage.Coupon, breakdown.PriceAfterDiscount)
			couponID = &usage.CouponID
		}
	}

	quote := BuildQuote(breakdown.PriceAfterDiscount, couponDiscount, s.taxRate)

	// A retried checkout reuses the pending session already claiming this
	// line; minting a new one would strand the old session, and a settlement
	// on its order id would pay a session with no lines attached.
	session, err := s.pendingBuyNowSession(ctx, enr)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &models.CheckoutSession{
			UserID:         userID,
			CheckoutType:   models.CheckoutTypeBuyNow,
			PaymentStatus:  models.PaymentStatusPending,
			GatewayOrderID: newOrderID(userID),
		}
		if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
			return nil, err
		}
	} else if session.SnapToken != "" {
		if err := s.remintOrderID(ctx, session, userID); err != nil {
			return nil, err
		}
	}

	lineUpdates := map[string]interface{}{
		"checkout_session_id": session.ID,
		"price":               breakdown.PriceAfterDiscount,
		"coupon_id":           couponID,
		"payment_type":        models.PaymentTypeMidtrans,
		"enrolled_at":         now,
	}
	if err := s.db.WithContext(ctx).Model(enr).Updates(lineUpdates).Error; err != nil {
		return nil, err
	}

	if quote.GrandTotal == 0 {
		if err := s.settleFree(ctx, session, now); err != nil {
			return nil, err
		}
		return &OrderResult{SessionID: session.ID, OrderID: session.GatewayOrderID, Free: true}, nil
	}

	items := []midtrans.ItemDetails{{
		ID:    fmt.Sprintf("course-%d", course.ID),
		Name:  course.Title,
		Price: breakdown.PriceAfterDiscount,
		Qty:   1,
	}}
	return s.createGatewayTransaction(ctx, session, quote, items)
}

// CheckoutCart places the multi-item order over every unpaid line in the
// open cart. Coupon usages recorded per line via ApplyCoupon are consumed
// into the session total.
func (s *CheckoutService) CheckoutCart(ctx context.Context, userID uint, now time.Time) (*OrderResult, error) {
	session, err := s.openCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrEmptyCart
	}

	var lines []models.CourseEnrollment
	if err := s.db.WithContext(ctx).
		Preload("Course").
		Where("checkout_session_id = ? AND access_status = ?", session.ID, models.AccessStatusInactive).
		Find(&lines).Error; err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var subtotal, couponDiscount int64
	items := make([]midtrans.ItemDetails, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		breakdown := EffectivePrice(&line.Course, now)
		subtotal += breakdown.PriceAfterDiscount

		var couponID *uint
		usage, err := s.coupons.RecordedUsage(ctx, userID, line.CourseID)
		if err != nil {
			return nil, err
		}
		if usage != nil {
			couponDiscount += CouponDeduction(&usage.Coupon, breakdown.PriceAfterDiscount)
			couponID = &usage.CouponID
		}

		if err := s.db.WithContext(ctx).Model(line).Updates(map[string]interface{}{
			"price":        breakdown.PriceAfterDiscount,
			"coupon_id":    couponID,
			"payment_type": models.PaymentTypeMidtrans,
			"enrolled_at":  now,
		}).Error; err != nil {
			return nil, err
		}

		items = append(items, midtrans.ItemDetails{
			ID:    fmt.Sprintf("course-%d", line.CourseID),
			Name:  line.Course.Title,
			Price: breakdown.PriceAfterDiscount,
			Qty:   1,
		})
	}

	quote := BuildQuote(subtotal, couponDiscount, s.taxRate)

	if quote.GrandTotal == 0 {
		if err := s.settleFree(ctx, session, now); err != nil {
			return nil, err
		}
		return &OrderResult{SessionID: session.ID, OrderID: session.GatewayOrderID, Free: true}, nil
	}

	if session.SnapToken != "" {
		if err := s.remintOrderID(ctx, session, userID); err != nil {
			return nil, err
		}
	}

	return s.createGatewayTransaction(ctx, session, quote, items)
}

// remintOrderID points a retried session at a fresh gateway reference. The
// stale order is cancelled at the gateway first so an abandoned Snap page
// cannot collect a payment the session no longer expects, and because the
// gateway rejects order ids it has already seen.
func (s *CheckoutService) remintOrderID(ctx context.Context, session *models.CheckoutSession, userID uint) error {
	if err := s.gateway.CancelTransaction(session.GatewayOrderID); err != nil {
		log.Printf("cancel stale gateway order %s: %v", session.GatewayOrderID, err)
	}

	newID := newOrderID(userID)
	if err := s.db.WithContext(ctx).Model(session).Updates(map[string]interface{}{
		"gateway_order_id": newID,
		"snap_token":       "",
		"redirect_url":     "",
	}).Error; err != nil {
		return err
	}
	session.GatewayOrderID = newID
	session.SnapToken = ""
	session.RedirectURL = ""
	return nil
}

// pendingBuyNowSession loads the still-pending buy-now session a line is
// attached to, or nil when the line is unclaimed or claimed by a cart.
func (s *CheckoutService) pendingBuyNowSession(ctx context.Context, enr *models.CourseEnrollment) (*models.CheckoutSession, error) {
	if enr.CheckoutSessionID == nil {
		return nil, nil
	}
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).First(&session, *enr.CheckoutSessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if session.CheckoutType != models.CheckoutTypeBuyNow || session.PaymentStatus != models.PaymentStatusPending {
		return nil, nil
	}
	return &session, nil
}

func (s *CheckoutService) createGatewayTransaction(ctx context.Context, session *models.CheckoutSession, quote Quote, items []midtrans.ItemDetails) (*OrderResult, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  session.GatewayOrderID,
			GrossAmt: quote.GrandTotal,
		},
		Items: &items,
	}

	resp, err := s.gateway.CreateTransaction(session.GatewayOrderID, quote.GrandTotal, req)
	if err != nil {
		return nil, fmt.Errorf("create gateway transaction: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(session).Updates(map[string]interface{}{
		"snap_token":   resp.Token,
		"redirect_url": resp.RedirectURL,
	}).Error; err != nil {
		return nil, err
	}

	return &OrderResult{
		SessionID:   session.ID,
		OrderID:     session.GatewayOrderID,
		GrandTotal:  quote.GrandTotal,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// settleFree marks a zero-amount session paid and activates its lines
// without touching the gateway.
func (s *CheckoutService) settleFree(ctx context.Context, session *models.CheckoutSession, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"paid_at":        now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.CourseEnrollment{}).
			Where("checkout_session_id = ? AND access_status = ?", session.ID, models.AccessStatusInactive).
			Updates(map[string]interface{}{
				"access_status": models.AccessStatusActive,
				"payment_type":  models.PaymentTypeFree,
				"paid_at":       now,
			}).Error
	})
}

func (s *CheckoutService) priceCartLines(ctx context.Context, sessionID uint, now time.Time) ([]CourseLine, int64, int64, error) {
	var enrollments []models.CourseEnrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("checkout_session_id = ? AND access_status = ?", sessionID, models.AccessStatusInactive).
		Find(&enrollments).Error
	if err != nil {
		return nil, 0, 0, err
	}

	var lines []CourseLine
	var subtotal, couponDiscount int64
	for i := range enrollments {
		enr := &enrollments[i]
		breakdown := EffectivePrice(&enr.Course, now)
		lines = append(lines, courseLine(&enr.Course, breakdown))
		subtotal += breakdown.PriceAfterDiscount

		usage, err := s.coupons.RecordedUsage(ctx, enr.UserID, enr.CourseID)
		if err != nil {
			return nil, 0, 0, err
		}
		if usage != nil {
			couponDiscount += CouponDeduction(&usage.Coupon, breakdown.PriceAfterDiscount)
		}
	}
	return lines, subtotal, couponDiscount, nil
}

// GetOrder returns one of the user's checkout sessions with its line items,
// for polling payment status after the gateway redirect. Sessions owned by
// other users are indistinguishable from missing ones.
func (s *CheckoutService) GetOrder(ctx context.Context, userID, sessionID uint) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *CheckoutService) openCart(ctx context.Context, userID uint) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND checkout_type = ? AND payment_status = ?",
			userID, models.CheckoutTypeCart, models.PaymentStatusPending).
		Order("created_at desc").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *CheckoutService) findCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).First(&course, courseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func courseLine(c *models.Course, b PriceBreakdown) CourseLine {
	return CourseLine{
		CourseID:           c.ID,
		Title:              c.Title,
		Base:               b.Base,
		DiscountAmount:     b.DiscountAmount,
		PriceAfterDiscount: b.PriceAfterDiscount,
	}
}

func newOrderID(userID uint) string {
	return fmt.Sprintf("checkout-%d-%s", userID, uuid.NewString())
}
