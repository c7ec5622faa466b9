package tracing

import (
	"context"
	"fmt"

	"github.com/parklistmc/parklist/util/values"
)

// Context identifies a single inbound request across log lines.
type Context struct {
	RequestID     string
	RequestSource string
}

func (c Context) String() string {
	return fmt.Sprintf("request_id=%s source=%s", c.RequestID, c.RequestSource)
}

// FromContext returns the tracing context stored by the RequestTracing
// middleware, or an empty one when the request bypassed it.
func FromContext(ctx context.Context) Context {
	tc, _ := ctx.Value(values.ContextTracingKey).(Context)
	return tc
}
