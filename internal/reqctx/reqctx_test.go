package reqctx_test

import (
	"context"
	"testing"

	"github.com/ErlanBelekov/account-service/internal/reqctx"
)

func TestRoundTrip(t *testing.T) {
	ctx := reqctx.WithUserID(reqctx.WithRequestID(context.Background(), "req-1"), "user-1")

	if got := reqctx.RequestID(ctx); got != "req-1" {
		t.Errorf("RequestID = %q, want req-1", got)
	}
	if got := reqctx.UserID(ctx); got != "user-1" {
		t.Errorf("UserID = %q, want user-1", got)
	}
}

func TestAbsent(t *testing.T) {
	ctx := context.Background()
	if reqctx.RequestID(ctx) != "" || reqctx.UserID(ctx) != "" {
		t.Error("expected empty values on a bare context")
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	if reqctx.NewRequestID() == reqctx.NewRequestID() {
		t.Error("two generated ids collided")
	}
}
