package grpcjson

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
)

func TestCodec(t *testing.T) {
	t.Parallel()
	c := codec{}

	type message struct {
		SessionID string `json:"sessionId"`
		Node      int    `json:"node"`
	}
	data, err := c.Marshal(&message{SessionID: "18446744073709551615", Node: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"18446744073709551615","node":3}`, string(data))

	var out message
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, 3, out.Node)
	assert.Equal(t, "json", c.Name())
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: errdefs.Validationf("bad input"), want: codes.InvalidArgument},
		{name: "not found", err: errdefs.NotFoundf("no session"), want: codes.NotFound},
		{name: "conflict", err: errdefs.Conflictf("collision"), want: codes.Internal},
		{name: "plain", err: errors.New("boom"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := status.Convert(Status(tt.err))
			assert.Equal(t, tt.want, st.Code())
			assert.Equal(t, tt.err.Error(), st.Message())
		})
	}

	assert.NoError(t, Status(nil))
}

func TestUnaryHandler(t *testing.T) {
	t.Parallel()

	type request struct{ Name string }
	type server struct{ greeting string }

	h := UnaryHandler("test.v1.Greeter", "Greet", func(ctx context.Context, s *server, in *request) (any, error) {
		_ = log.FromContext(ctx)
		return s.greeting + " " + in.Name, nil
	})
	dec := func(v any) error {
		v.(*request).Name = "alice"
		return nil
	}

	out, err := h(&server{greeting: "hello"}, context.Background(), dec, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello alice", out)

	var seen string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return LoggingInterceptor(logr.Discard())(ctx, req, info, handler)
	}
	out, err = h(&server{greeting: "hi"}, context.Background(), dec, interceptor)
	require.NoError(t, err)
	assert.Equal(t, "hi alice", out)
	assert.Equal(t, "/test.v1.Greeter/Greet", seen)

	_, err = h(&server{}, context.Background(), func(any) error { return errors.New("decode") }, nil)
	assert.EqualError(t, err, "decode")
}
