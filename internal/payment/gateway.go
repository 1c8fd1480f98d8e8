// Package payment wraps the payment processor: Snap transactions for checkout
// and signature checks for its HTTP notifications.
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"uk-eta-backend/internal/models"
)

const ProviderMidtrans = "midtrans"

type Item struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Qty   int32
}

type ChargeRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Email     string
	FirstName string
	LastName  string
	Items     []Item
}

type Charge struct {
	Token       string
	RedirectURL string
}

type Gateway interface {
	CreateTransaction(ctx context.Context, req ChargeRequest) (*Charge, error)
	Provider() string
}

type SnapGateway struct {
	client snap.Client
}

func NewSnapGateway(serverKey string, production bool) *SnapGateway {
	g := &SnapGateway{}
	if production {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

func (g *SnapGateway) Provider() string {
	return ProviderMidtrans
}

// CreateTransaction charges whole currency units; the processor has no minor units.
func (g *SnapGateway) CreateTransaction(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("invalid payment amount %s", req.Amount)
	}
	if req.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount.Round(0).IntPart(),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.FirstName,
			LName: req.LastName,
			Email: req.Email,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}

	if len(req.Items) > 0 {
		items := make([]midtrans.ItemDetails, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, midtrans.ItemDetails{
				ID:    it.ID,
				Name:  truncate(it.Name, 50),
				Price: it.Price.Round(0).IntPart(),
				Qty:   it.Qty,
			})
		}
		snapReq.Items = &items
	}

	resp, merr := g.client.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("failed to create snap transaction: %s", merr.Message)
	}
	return &Charge{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// SignatureKey is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func SignatureKey(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(n models.PaymentNotification, serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	want := SignatureKey(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(n.SignatureKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// MapStatus converts a processor transaction status into a payment status.
// The second result is false for statuses that should not change anything.
func MapStatus(transactionStatus, fraudStatus string) (models.PaymentStatus, bool) {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "", "accept":
			return models.PaymentPaid, true
		case "challenge":
			return models.PaymentPending, true
		default:
			return models.PaymentFailed, true
		}
	case "settlement":
		return models.PaymentPaid, true
	case "pending":
		return models.PaymentPending, true
	case "deny", "cancel", "expire", "failure":
		return models.PaymentFailed, true
	case "refund", "partial_refund":
		return models.PaymentRefunded, true
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
