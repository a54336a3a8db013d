package payments

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"cinetix/internal/shared/config"
)

// Request is one charge attempt.
type Request struct {
	AmountMinor int64
	Method      string
	ExternalRef string
}

// Result is the gateway's answer. OK false means the charge was declined;
// Reason then carries the client-visible diagnostic.
type Result struct {
	OK       bool
	AuthCode string
	Reason   string
}

// Provider is the injected payment capability. Pay is slow, up to the
// configured timeout, and not idempotent. Callers must never retry a Pay
// call blindly.
type Provider interface {
	Pay(ctx context.Context, req Request) (*Result, error)
}

// SimulatedProvider stands in for a real gateway: it sleeps a realistic
// latency and approves a configurable fraction of charges.
type SimulatedProvider struct {
	approvalRate float64
	minLatency   time.Duration
	maxLatency   time.Duration
}

func NewSimulatedProvider(cfg *config.Config) *SimulatedProvider {
	return &SimulatedProvider{
		approvalRate: cfg.Payment.ApprovalRate,
		minLatency:   300 * time.Millisecond,
		maxLatency:   900 * time.Millisecond,
	}
}

func (p *SimulatedProvider) Pay(ctx context.Context, req Request) (*Result, error) {
	latency := p.minLatency
	if p.maxLatency > p.minLatency {
		latency += time.Duration(rand.Int63n(int64(p.maxLatency - p.minLatency)))
	}

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if req.AmountMinor <= 0 {
		return &Result{OK: false, Reason: "invalid amount"}, nil
	}

	if rand.Float64() >= p.approvalRate {
		return &Result{OK: false, Reason: "card declined - insufficient funds"}, nil
	}

	return &Result{
		OK:       true,
		AuthCode: fmt.Sprintf("AUTH%d%04d", time.Now().Unix(), rand.Intn(10000)),
	}, nil
}
