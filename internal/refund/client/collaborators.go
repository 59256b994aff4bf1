package client

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/tair/course-settlement/internal/config"
	orderdomain "github.com/tair/course-settlement/internal/order/domain"
)

const (
	methodRestoreCredits = "/wallet.v1.WalletService/RestoreCredits"
	methodRevoke         = "/enrollment.v1.EnrollmentService/Revoke"
	methodSubtract       = "/dailylimit.v1.DailyLimitService/Subtract"
)

// WalletClient restores cookie credits in the wallet service
type WalletClient struct {
	rpc rpc
}

// NewWalletClient creates a new wallet client
func NewWalletClient(conn grpc.ClientConnInterface, cfg config.ServiceConfig) *WalletClient {
	return &WalletClient{rpc: newRPC(conn, cfg)}
}

// RestoreCredits credits amount back to the user's wallet
func (c *WalletClient) RestoreCredits(ctx context.Context, userID uint, amount int64, sourceOrderID uint, memo string) error {
	_, err := c.rpc.invoke(ctx, methodRestoreCredits, map[string]interface{}{
		"user_id":         userID,
		"amount":          amount,
		"source_order_id": sourceOrderID,
		"memo":            memo,
	})
	return err
}

// EnrollmentClient revokes course access in the enrollment service
type EnrollmentClient struct {
	rpc rpc
}

// NewEnrollmentClient creates a new enrollment client
func NewEnrollmentClient(conn grpc.ClientConnInterface, cfg config.ServiceConfig) *EnrollmentClient {
	return &EnrollmentClient{rpc: newRPC(conn, cfg)}
}

// Revoke removes the access granted by item
func (c *EnrollmentClient) Revoke(ctx context.Context, userID uint, item orderdomain.OrderItem) error {
	fields := map[string]interface{}{
		"user_id":       userID,
		"order_item_id": item.ID,
		"item_type":     item.ItemType,
	}
	if item.CourseID != nil {
		fields["course_id"] = *item.CourseID
	}
	if item.SectionID != nil {
		fields["section_id"] = *item.SectionID
	}
	_, err := c.rpc.invoke(ctx, methodRevoke, fields)
	return err
}

// DailyLimitClient adjusts the per-user daily spend aggregate
type DailyLimitClient struct {
	rpc rpc
}

// NewDailyLimitClient creates a new daily limit client
func NewDailyLimitClient(conn grpc.ClientConnInterface, cfg config.ServiceConfig) *DailyLimitClient {
	return &DailyLimitClient{rpc: newRPC(conn, cfg)}
}

// Subtract removes refunded amounts from the aggregate of date
func (c *DailyLimitClient) Subtract(ctx context.Context, userID uint, date time.Time, cashAmount, cookieAmount int64) error {
	_, err := c.rpc.invoke(ctx, methodSubtract, map[string]interface{}{
		"user_id":       userID,
		"date":          date.UTC().Format(time.DateOnly),
		"cash_amount":   cashAmount,
		"cookie_amount": cookieAmount,
	})
	return err
}
