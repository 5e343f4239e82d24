// Package clients defines the external platform client capability and the
// write model the mapping engine emits.
package clients

import (
	"context"
	"fmt"
)

// GraphQLClient executes one GraphQL operation against the external commerce
// platform. The core inspects the returned document as a nested map; it never
// sees the transport.
type GraphQLClient interface {
	Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error)
}

// TransportError wraps any failure below the GraphQL document level: network
// errors, timeouts, non-2xx statuses, undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
