package testutil

import "context"

// MockOracle records every randomness request.
type MockOracle struct {
	RequestFunc func(ctx context.Context, correlationID, raffleID string) error

	Requests []OracleRequest
}

type OracleRequest struct {
	CorrelationID string
	RaffleID      string
}

func (m *MockOracle) Request(ctx context.Context, correlationID, raffleID string) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, correlationID, raffleID)
	}

	m.Requests = append(m.Requests, OracleRequest{CorrelationID: correlationID, RaffleID: raffleID})
	return nil
}
