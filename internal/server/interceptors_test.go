package server

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/leaderbattle/battle-server-go/internal/game"
	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: MethodGetMatch}

func okHandler(_ context.Context, req interface{}) (interface{}, error) {
	return req, nil
}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var order []string
	tag := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			order = append(order, name+">")
			resp, err := handler(ctx, req)
			order = append(order, "<"+name)
			return resp, err
		}
	}

	chain := ChainUnaryInterceptors(tag("a"), tag("b"), tag("c"))
	resp, err := chain(context.Background(), "req", testInfo, okHandler)
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, []string{"a>", "b>", "c>", "<c", "<b", "<a"}, order)

	resp, err = ChainUnaryInterceptors()(context.Background(), "bare", testInfo, okHandler)
	require.NoError(t, err)
	assert.Equal(t, "bare", resp)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	_, err := interceptor(context.Background(), nil, testInfo, func(context.Context, interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err := interceptor(context.Background(), "fine", testInfo, okHandler)
	require.NoError(t, err)
	assert.Equal(t, "fine", resp)
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(zaptest.NewLogger(t))
	want := status.Error(codes.NotFound, "missing")
	_, err := interceptor(context.Background(), nil, testInfo, func(context.Context, interface{}) (interface{}, error) {
		return nil, want
	})
	assert.Equal(t, want, err)
}

func TestAdminInterceptor(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	guardedInfo := &grpc.UnaryServerInfo{FullMethod: MethodInjectState}
	withPassword := func(pw string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(AdminPasswordHeader, pw))
	}

	tests := []struct {
		name string
		hash string
		ctx  context.Context
		info *grpc.UnaryServerInfo
		code codes.Code
	}{
		{"unguarded method", string(hash), context.Background(), testInfo, codes.OK},
		{"no metadata", string(hash), context.Background(), guardedInfo, codes.Unauthenticated},
		{"wrong password", string(hash), withPassword("nope"), guardedInfo, codes.PermissionDenied},
		{"right password", string(hash), withPassword("pw"), guardedInfo, codes.OK},
		{"not configured", "", withPassword("pw"), guardedInfo, codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := AdminInterceptor(tt.hash, zaptest.NewLogger(t), MethodInjectState)
			_, err := interceptor(tt.ctx, nil, tt.info, okHandler)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"nil", nil, codes.OK},
		{"invalid action", &game.ActionError{Kind: game.KindInvalidAction, Reason: "bad"}, codes.InvalidArgument},
		{"illegal placement", &game.ActionError{Kind: game.KindIllegalPlacement, Reason: "help zone already occupied"}, codes.InvalidArgument},
		{"out of turn", &game.ActionError{Kind: game.KindOutOfTurn}, codes.FailedPrecondition},
		{"card not found", &game.ActionError{Kind: game.KindCardNotFound}, codes.NotFound},
		{"match not found", fmt.Errorf("%w: m1", game.ErrMatchNotFound), codes.NotFound},
		{"deck not found", fmt.Errorf("%w: carol", catalog.ErrDeckNotFound), codes.NotFound},
		{"no advisor", game.ErrNoAdvisor, codes.Unimplemented},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"status passthrough", status.Error(codes.Aborted, "x"), codes.Aborted},
		{"other", errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(toStatus(tt.err)))
		})
	}

	st, _ := status.FromError(toStatus(&game.ActionError{Kind: game.KindIllegalPlacement, Reason: "help zone already occupied"}))
	assert.Contains(t, st.Message(), "already occupied")
}
