package resolver

import (
	"context"
	"time"

	"github.com/sqldns/sqldns/model"
)

// delegationTimeout bounds one delegated resolution in total; the upstream
// client additionally applies its own per-call dial/read/write timeouts.
const delegationTimeout = 3 * time.Second

// DelegationClient forwards rewritten alias queries to the upstream resolver
// with a bounded time budget, so a stalled upstream cannot hold a resolution
// open indefinitely. It performs no loop detection; alias cycles in the store
// are bounded by the upstream resolver's own limits and this budget.
type DelegationClient struct {
	upstream Resolver
	timeout  time.Duration
}

// NewDelegationClient creates a new client delegating to the passed upstream resolver
func NewDelegationClient(upstream Resolver) *DelegationClient {
	return &DelegationClient{
		upstream: upstream,
		timeout:  delegationTimeout,
	}
}

// Delegate relays the query upstream and returns the outcome verbatim on
// success. Upstream failure or timeout is surfaced as DelegationError.
func (c *DelegationClient) Delegate(ctx context.Context, request *model.Request) (*model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.upstream.Resolve(ctx, request)
	if err != nil {
		return nil, &DelegationError{Cause: err}
	}

	return response, nil
}
