package grpcjson

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// Status converts err into a gRPC status error using its errdefs kind.
func Status(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(errdefs.GRPCCode(err), err.Error())
}

// LoggingInterceptor puts logger into each request context and logs the
// outcome of every call.
func LoggingInterceptor(logger logr.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		l := logger.WithValues("method", info.FullMethod)
		start := time.Now()
		resp, err := handler(log.IntoContext(ctx, l), req)
		if err != nil {
			l.Info("rpc failed", "code", status.Code(err).String(), "error", err.Error(), "duration", time.Since(start))
		} else {
			l.V(1).Info("rpc served", "duration", time.Since(start))
		}
		return resp, err
	}
}

// NewServer builds a grpc.Server that logs every call through logger.
func NewServer(logger logr.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))
	return grpc.NewServer(opts...)
}

// FullMethod returns the gRPC method path of method on service.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// UnaryHandler adapts a typed call on server type S into a
// grpc.MethodHandler for a hand-written ServiceDesc.
func UnaryHandler[S, Req any](service, method string, call func(context.Context, S, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv.(S), in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(service, method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, srv.(S), req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
