package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/course-settlement/internal/config"
	"github.com/tair/course-settlement/pkg/breaker"
	"github.com/tair/course-settlement/pkg/logger"
)

// Dial opens a lazily connecting, traced gRPC channel to a collaborator
func Dial(cfg config.ServiceConfig) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Name, err)
	}

	logger.Logger.Info().
		Str("service", cfg.Name).
		Str("address", cfg.Addr).
		Msg("gRPC client created")
	return conn, nil
}

// rpc invokes unary methods whose messages are google.protobuf.Struct
type rpc struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
	breaker *breaker.Breaker
}

func newRPC(conn grpc.ClientConnInterface, cfg config.ServiceConfig) rpc {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return rpc{conn: conn, timeout: timeout, breaker: breaker.New(cfg.Name, 5, 30*time.Second)}
}

func (r rpc) invoke(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	err = r.breaker.Call(func() error {
		return r.conn.Invoke(ctx, method, req, resp)
	}, isRejection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}

// isRejection keeps business rejections from tripping the breaker
func isRejection(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.FailedPrecondition, codes.PermissionDenied:
		return true
	}
	return false
}
