package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StubGateway approves every charge without contacting a processor. It backs
// local development when no server key is configured.
type StubGateway struct {
	portalURL string

	mu       sync.Mutex
	requests []ChargeRequest
	Err      error
}

func NewStubGateway(portalURL string) *StubGateway {
	return &StubGateway{portalURL: strings.TrimSuffix(portalURL, "/")}
}

func (g *StubGateway) Provider() string {
	return "stub"
}

func (g *StubGateway) CreateTransaction(ctx context.Context, req ChargeRequest) (*Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.requests = append(g.requests, req)
	return &Charge{
		Token:       "stub-" + req.OrderID,
		RedirectURL: fmt.Sprintf("%s/application/confirmation?order_id=%s", g.portalURL, req.OrderID),
	}, nil
}

func (g *StubGateway) Requests() []ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ChargeRequest(nil), g.requests...)
}
