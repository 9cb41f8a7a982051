package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/creem"
	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/models"
)

// ErrInvalidSignature is returned for webhook deliveries whose signature does
// not verify; handlers translate it to HTTP 401.
var ErrInvalidSignature = errors.New("invalid webhook signature")

type creditPackage struct {
	ProductID   string
	AmountCents int
}

// creditPackages maps purchasable credit amounts to Creem product ids.
var creditPackages = map[int]creditPackage{
	100:  {ProductID: "prod_5Y2l5t9ExT3DnmErjWZxfz", AmountCents: 500},
	500:  {ProductID: "prod_1kQzTNnbeVXvRyyP0pJx2c", AmountCents: 2000},
	1000: {ProductID: "prod_6gFWkqe2y3Nc0GmHxwEQJd", AmountCents: 3500},
	5000: {ProductID: "prod_3vMDyqtBxp8a7Tz5LUuWmS", AmountCents: 15000},
}

type planProducts struct {
	Monthly string
	Yearly  string
}

// subscriptionPlans maps plan ids to Creem product ids per billing cycle.
var subscriptionPlans = map[string]planProducts{
	"basic": {Monthly: "prod_basic_monthly", Yearly: "prod_basic_yearly"},
	"pro":   {Monthly: "prod_pro_monthly", Yearly: "prod_pro_yearly"},
	"max":   {Monthly: "prod_max_monthly", Yearly: "prod_max_yearly"},
}

type CheckoutClient interface {
	CreateCheckout(ctx context.Context, req creem.CheckoutRequest) (*creem.CheckoutSession, error)
	VerifySignature(payload []byte, signature string) bool
}

type RechargeStore interface {
	Insert(ctx context.Context, record *models.RechargeRecord) error
	FindByPaymentID(ctx context.Context, paymentID string) (*models.RechargeRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.RechargeStatus) (bool, error)
}

// CreditLedger is the crediting side of the profile repository.
type CreditLedger interface {
	Credit(ctx context.Context, userID string, amount int) error
}

type PaymentService struct {
	cfg       config.Config
	log       *slog.Logger
	checkout  CheckoutClient
	recharges RechargeStore
	profiles  CreditLedger
}

func NewPaymentService(cfg config.Config, log *slog.Logger, checkout CheckoutClient, recharges RechargeStore, profiles CreditLedger) *PaymentService {
	return &PaymentService{
		cfg:       cfg,
		log:       log,
		checkout:  checkout,
		recharges: recharges,
		profiles:  profiles,
	}
}

// CreateCheckout opens a payment session for one credit package and records
// the pending recharge keyed by the session id, so the webhook can complete
// it later.
func (s *PaymentService) CreateCheckout(ctx context.Context, user *identity.User, credits int) (*creem.CheckoutSession, error) {
	pkg, ok := creditPackages[credits]
	if !ok {
		return nil, validationErrorf("Invalid credit package")
	}

	session, err := s.checkout.CreateCheckout(ctx, creem.CheckoutRequest{
		ProductID:     pkg.ProductID,
		CustomerEmail: user.Email,
		Metadata: map[string]any{
			"user_id": user.ID,
			"type":    "credits_purchase",
			"credits": credits,
			"amount":  pkg.AmountCents,
		},
		SuccessURL: s.successURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.recharges.Insert(ctx, &models.RechargeRecord{
		UserID:        user.ID,
		Amount:        pkg.AmountCents,
		Credits:       credits,
		PaymentMethod: "creem",
		PaymentID:     session.ID,
		Status:        models.RechargePending,
	}); err != nil {
		return nil, fmt.Errorf("record pending recharge: %w", err)
	}

	return session, nil
}

// CreateSubscriptionCheckout opens a payment session for a subscription plan.
// Activation is driven by subscription.paid webhooks once that flow exists,
// so unlike credit purchases no pending record is written here.
func (s *PaymentService) CreateSubscriptionCheckout(ctx context.Context, user *identity.User, planID, billingCycle string) (*creem.CheckoutSession, error) {
	plan, ok := subscriptionPlans[planID]
	if !ok {
		return nil, validationErrorf("Invalid plan or billing cycle")
	}

	var productID string
	switch billingCycle {
	case "monthly":
		productID = plan.Monthly
	case "yearly":
		productID = plan.Yearly
	default:
		return nil, validationErrorf("Invalid plan or billing cycle")
	}

	session, err := s.checkout.CreateCheckout(ctx, creem.CheckoutRequest{
		ProductID:     productID,
		CustomerEmail: user.Email,
		Metadata: map[string]any{
			"user_id":       user.ID,
			"plan_id":       planID,
			"billing_cycle": billingCycle,
		},
		SuccessURL: s.successURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

func (s *PaymentService) successURL() string {
	return s.cfg.AppBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

// HandleWebhook verifies and consumes one webhook delivery. Only
// checkout.completed moves credits; subscription and refund events are
// acknowledged and logged until those flows exist.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" || !s.checkout.VerifySignature(payload, signature) {
		return ErrInvalidSignature
	}

	event, err := creem.ParseEvent(payload)
	if err != nil {
		return err
	}

	switch event.EventType {
	case "checkout.completed":
		return s.completeCheckout(ctx, event)

	case "subscription.paid", "subscription.canceled", "subscription.expired", "refund.created":
		s.log.Info("payment event acknowledged", "event_type", event.EventType)
		return nil

	default:
		s.log.Info("unhandled payment event type", "event_type", event.EventType)
		return nil
	}
}

func (s *PaymentService) completeCheckout(ctx context.Context, event *creem.Event) error {
	obj, err := event.DecodeObject()
	if err != nil {
		return err
	}

	record, err := s.recharges.FindByPaymentID(ctx, obj.ID)
	if err != nil {
		return err
	}
	if record == nil {
		s.log.Warn("checkout completed for unknown session", "session_id", obj.ID)
		return nil
	}

	// UpdateStatus is a guarded transition, so a redelivered webhook cannot
	// credit the same purchase twice.
	completed, err := s.recharges.UpdateStatus(ctx, record.ID, models.RechargeCompleted)
	if err != nil {
		return err
	}
	if !completed {
		s.log.Info("recharge already completed", "recharge_id", record.ID)
		return nil
	}

	if err := s.profiles.Credit(ctx, record.UserID, record.Credits); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	s.log.Info("recharge completed", "recharge_id", record.ID, "user_id", record.UserID, "credits", record.Credits)
	return nil
}
