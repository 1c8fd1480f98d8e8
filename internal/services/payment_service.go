package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/payment"
	"uk-eta-backend/internal/store"
)

const Currency = "GBP"

type PaymentService struct {
	base
	store     store.Store
	gateway   payment.Gateway
	notifier  *notification.Service
	fee       decimal.Decimal
	serverKey string
	portalURL string
}

type PaymentConfig struct {
	FeePerApplicant decimal.Decimal
	// ServerKey signs processor notifications.
	ServerKey string
	PortalURL string
}

func NewPaymentService(st store.Store, gateway payment.Gateway, notifier *notification.Service, cfg PaymentConfig, opts ...Option) *PaymentService {
	return &PaymentService{
		base:      newBase(opts),
		store:     st,
		gateway:   gateway,
		notifier:  notifier,
		fee:       cfg.FeePerApplicant,
		serverKey: cfg.ServerKey,
		portalURL: strings.TrimRight(cfg.PortalURL, "/"),
	}
}

// CreatePaymentIntent opens a processor transaction for fee x applicants and
// records it as pending.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, applicationID uuid.UUID, actor string) (*models.PaymentIntentResponse, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app.PaymentStatus == models.PaymentPaid {
		return nil, NewBusinessError("Application %s has already been paid", app.ReferenceNumber)
	}
	applicants, err := s.store.ListApplicants(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	if len(applicants) == 0 {
		return nil, NewBusinessError("Application has no applicants")
	}

	amount := s.fee.Mul(decimal.NewFromInt(int64(len(applicants))))
	orderID := fmt.Sprintf("%s-%s", app.ReferenceNumber, strings.ToUpper(uuid.NewString()[:8]))
	lead := applicants[0]
	email := app.UserEmail
	if email == "" {
		email = lead.Email
	}

	charge, err := s.gateway.CreateTransaction(ctx, payment.ChargeRequest{
		OrderID:   orderID,
		Amount:    amount,
		Email:     email,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Items: []payment.Item{{
			ID:    "uk-eta",
			Name:  "UK Electronic Travel Authorisation",
			Price: s.fee,
			Qty:   int32(len(applicants)),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		txn := &models.PaymentTransaction{
			ApplicationID: app.ID,
			OrderID:       orderID,
			Amount:        amount,
			Currency:      Currency,
			Status:        models.PaymentPending,
			Provider:      s.gateway.Provider(),
		}
		if err := s.store.CreatePaymentTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		app.PaymentAmount = amount
		if err := s.store.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		return audit(ctx, s.store, app.ID, actor, models.AuditPaymentCreated, models.JSONMap{
			"order_id": orderID,
			"amount":   amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayment(string(models.PaymentPending))
	return &models.PaymentIntentResponse{
		Success:         true,
		OrderID:         orderID,
		Token:           charge.Token,
		RedirectURL:     charge.RedirectURL,
		Amount:          amount,
		Currency:        Currency,
		ConfirmationURL: s.portalURL + "/application/confirmation",
	}, nil
}

// HandleNotification applies a signed processor notification. Replays and
// unknown statuses are no-ops, and a paid transaction only moves to refunded.
// The application's payment status is derived from all of its orders, so a
// stale order expiring never undoes a settled one.
func (s *PaymentService) HandleNotification(ctx context.Context, n models.PaymentNotification) error {
	if !payment.VerifySignature(n, s.serverKey) {
		return ErrInvalidSignature
	}
	status, ok := payment.MapStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		s.logger.InfoContext(ctx, "ignoring payment notification", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
		return nil
	}
	gross, err := decimal.NewFromString(n.GrossAmount)
	if err != nil {
		return NewBusinessError("Invalid gross amount %q", n.GrossAmount)
	}

	var (
		app     *models.Application
		newPaid bool
		changed bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		txn, err := s.store.GetPaymentTransactionByOrderID(ctx, n.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load payment %s: %w", n.OrderID, err)
		}
		if !gross.Equal(txn.Amount) && !gross.Equal(txn.Amount.Round(0)) {
			return NewBusinessError("Gross amount %s does not match order %s", n.GrossAmount, n.OrderID)
		}
		if txn.Status == status && txn.ProviderStatus == n.TransactionStatus {
			return nil
		}
		if txn.Status == models.PaymentPaid && status != models.PaymentRefunded {
			s.logger.WarnContext(ctx, "ignoring payment downgrade", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
			return nil
		}

		changed = true
		txn.Status = status
		txn.ProviderStatus = n.TransactionStatus
		if n.TransactionID != "" {
			txn.ProviderTransactionID = n.TransactionID
		}
		if err := s.store.UpdatePaymentTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		app, err = s.store.GetApplication(ctx, txn.ApplicationID)
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		txns, err := s.store.ListPaymentTransactions(ctx, app.ID)
		if err != nil {
			return fmt.Errorf("failed to list payments: %w", err)
		}
		derived := DerivePaymentStatus(txns)
		newPaid = derived == models.PaymentPaid && app.PaymentStatus != models.PaymentPaid
		if status == models.PaymentPaid && !newPaid {
			s.logger.WarnContext(ctx, "application settled by more than one order", "application_id", app.ID, "order_id", n.OrderID)
		}
		app.PaymentStatus = derived
		if derived == models.PaymentPaid && app.Status == models.StatusSubmitted {
			app.Status = models.StatusProcessing
		}
		if err := s.store.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		return audit(ctx, s.store, app.ID, payment.ProviderMidtrans, models.AuditPaymentNotification, models.JSONMap{
			"order_id":           n.OrderID,
			"transaction_status": n.TransactionStatus,
			"payment_status":     string(status),
			"application_status": string(derived),
		})
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.metrics.IncPayment(string(status))
	s.logger.InfoContext(ctx, "payment updated", "order_id", n.OrderID, "payment_status", string(status))

	if newPaid {
		s.sendReceipt(ctx, app, gross)
	}
	return nil
}

// DerivePaymentStatus folds an application's orders into one status: paid if
// any order is paid, else pending while an order is still open, else refunded
// if any order was refunded, else failed. No orders means pending.
func DerivePaymentStatus(txns []models.PaymentTransaction) models.PaymentStatus {
	seen := make(map[models.PaymentStatus]bool, 4)
	for _, txn := range txns {
		seen[txn.Status] = true
	}
	switch {
	case seen[models.PaymentPaid]:
		return models.PaymentPaid
	case seen[models.PaymentPending] || len(txns) == 0:
		return models.PaymentPending
	case seen[models.PaymentRefunded]:
		return models.PaymentRefunded
	default:
		return models.PaymentFailed
	}
}

func (s *PaymentService) sendReceipt(ctx context.Context, app *models.Application, amount decimal.Decimal) {
	applicants, err := s.store.ListApplicants(ctx, app.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to load applicants for receipt", "application_id", app.ID, "error", err)
	}
	data := notification.Data{
		ReferenceNumber: app.ReferenceNumber,
		Amount:          amount.StringFixed(2),
		Currency:        Currency,
	}
	to := app.UserEmail
	if len(applicants) > 0 {
		data.Name = applicantName(applicants[0])
		if to == "" {
			to = applicants[0].Email
		}
	}
	s.notify(ctx, s.notifier, to, notification.TemplatePaymentReceipt, data)
}
