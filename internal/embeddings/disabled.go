package embeddings

import (
	"context"
	"errors"
)

// ErrDisabled is returned by the disabled client for every call.
var ErrDisabled = errors.New("embeddings are disabled")

// DisabledClient satisfies Client when no embedding provider is configured.
// Callers already degrade on embedding errors (retrieval returns nothing,
// memories are stored without vectors), so disabling is just a client that
// always fails.
type DisabledClient struct{}

// NewDisabledClient creates a client that rejects every embedding request.
func NewDisabledClient() *DisabledClient {
	return &DisabledClient{}
}

// CreateEmbedding always returns ErrDisabled.
func (c *DisabledClient) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrDisabled
}
