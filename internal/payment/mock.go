package payment

import "context"

// Mock accepts every signature and never fails. Meant for development and
// test environments; selected by configuration like any other gateway.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (g *Mock) Name() string { return "mock" }

func (g *Mock) CreateOrder(_ context.Context, _ uint32, _ string) (string, error) {
	return opaqueID("mock_"), nil
}

func (g *Mock) VerifySignature(Callback) error { return nil }

func (g *Mock) Refund(_ context.Context, _ string, _ uint32) (string, error) {
	return opaqueID("mockref_"), nil
}
