package deployment

import "context"

// OperationContext identifies who started a deployment and under which
// request. It is captured when the stream is subscribed and reattached to
// the context of every event the coordinator processes.
type OperationContext struct {
	Principal   string
	OperationID string
}

type operationKey struct{}

// WithOperation returns a copy of ctx carrying op.
func WithOperation(ctx context.Context, op OperationContext) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation attached to ctx, if any.
func OperationFrom(ctx context.Context) (OperationContext, bool) {
	op, ok := ctx.Value(operationKey{}).(OperationContext)
	return op, ok
}
