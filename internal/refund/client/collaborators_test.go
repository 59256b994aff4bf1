package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tair/course-settlement/internal/config"
	orderdomain "github.com/tair/course-settlement/internal/order/domain"
)

type received struct {
	method string
	fields map[string]interface{}
}

// startServer accepts any unary method and records its Struct payload
func startServer(t *testing.T, reply error) (*grpc.ClientConn, func() []received) {
	t.Helper()

	var (
		mu   sync.Mutex
		seen []received
	)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, received{method: method, fields: req.AsMap()})
		mu.Unlock()
		if reply != nil {
			return reply
		}
		return stream.SendMsg(&structpb.Struct{})
	}))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})

	return conn, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), seen...)
	}
}

func TestWalletClient_RestoreCredits(t *testing.T) {
	conn, seen := startServer(t, nil)
	c := NewWalletClient(conn, config.ServiceConfig{Name: "wallet", Timeout: time.Second})

	require.NoError(t, c.RestoreCredits(context.Background(), 10, 500, 2, "refund 1 of order 2"))

	calls := seen()
	require.Len(t, calls, 1)
	assert.Equal(t, methodRestoreCredits, calls[0].method)
	assert.Equal(t, float64(10), calls[0].fields["user_id"])
	assert.Equal(t, float64(500), calls[0].fields["amount"])
	assert.Equal(t, float64(2), calls[0].fields["source_order_id"])
}

func TestEnrollmentClient_Revoke(t *testing.T) {
	conn, seen := startServer(t, nil)
	c := NewEnrollmentClient(conn, config.ServiceConfig{Name: "enrollment"})

	course := uint(100)
	require.NoError(t, c.Revoke(context.Background(), 10, orderdomain.OrderItem{ID: 7, ItemType: orderdomain.ItemTypeCourse, CourseID: &course}))

	calls := seen()
	require.Len(t, calls, 1)
	assert.Equal(t, methodRevoke, calls[0].method)
	assert.Equal(t, float64(100), calls[0].fields["course_id"])
	assert.NotContains(t, calls[0].fields, "section_id")
}

func TestDailyLimitClient_Subtract(t *testing.T) {
	conn, seen := startServer(t, nil)
	c := NewDailyLimitClient(conn, config.ServiceConfig{Name: "daily-limit"})

	date := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	require.NoError(t, c.Subtract(context.Background(), 10, date, 90000, 0))

	calls := seen()
	require.Len(t, calls, 1)
	assert.Equal(t, "2024-05-01", calls[0].fields["date"])
	assert.Equal(t, float64(90000), calls[0].fields["cash_amount"])
}

func TestWalletClient_ServerError(t *testing.T) {
	conn, _ := startServer(t, status.Error(codes.Unavailable, "maintenance"))
	c := NewWalletClient(conn, config.ServiceConfig{Name: "wallet"})

	err := c.RestoreCredits(context.Background(), 10, 500, 2, "")
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
