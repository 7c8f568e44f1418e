package interceptor

import (
	"context"
	"testing"
	"time"

	"fleetrent-backend/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testSecret = "interceptor-test-secret-0123456789abcdef"

func callWith(t *testing.T, method string, md metadata.MD) (string, error) {
	t.Helper()
	tm := security.NewTokenManager(testSecret, "", time.Hour)
	unary := NewAuthInterceptor(tm).Unary()

	var actor string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		in, _ := metadata.FromIncomingContext(ctx)
		if v := in.Get(ActorHeader); len(v) > 0 {
			actor = v[0]
		}
		return "ok", nil
	}
	ctx := metadata.NewIncomingContext(context.Background(), md)
	_, err := unary(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
	return actor, err
}

func token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	tok, err := security.NewTokenManager(testSecret, "", time.Hour).GenerateToken(subject, "", roles)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthInterceptor(t *testing.T) {
	const (
		health     = "/fleet.v1.LifecycleService/HealthCheck"
		read       = "/fleet.v1.LifecycleService/GetEquipment"
		transition = "/fleet.v1.LifecycleService/Transition"
	)

	t.Run("PublicSkipsAuth", func(t *testing.T) {
		_, err := callWith(t, health, metadata.MD{})
		assert.NoError(t, err)
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := callWith(t, read, metadata.MD{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := callWith(t, read, metadata.Pairs("authorization", "Bearer nope"))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("ViewerCannotOperate", func(t *testing.T) {
		_, err := callWith(t, transition, metadata.Pairs("authorization", token(t, "vic")))
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("ActorOverwritesClientHeader", func(t *testing.T) {
		actor, err := callWith(t, transition, metadata.Pairs(
			"authorization", token(t, "ana", "operator"),
			ActorHeader, "mallory",
		))
		require.NoError(t, err)
		assert.Equal(t, "ana", actor)
	})

	t.Run("LowercaseBearer", func(t *testing.T) {
		tok := token(t, "ana")[len("Bearer "):]
		actor, err := callWith(t, read, metadata.Pairs("authorization", "bearer "+tok))
		require.NoError(t, err)
		assert.Equal(t, "ana", actor)
	})
}
