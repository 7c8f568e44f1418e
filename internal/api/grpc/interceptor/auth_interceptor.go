package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/security"
)

// ActorHeader carries the authenticated actor to handlers. Any client-supplied
// value is overwritten.
const ActorHeader = "x-actor"

const bearerPrefix = "bearer "

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary checks the caller against the method's security level and stamps the
// actor for the ledger.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := config.GetSecurityLevel(info.FullMethod)
		if level == config.SecurityPublic {
			return handler(ctx, req)
		}

		claims, err := i.authorize(ctx, level)
		if err != nil {
			logger.WarnContext(ctx, "gRPC call rejected", "method", info.FullMethod, "error", err)
			return nil, err
		}
		return handler(withActor(ctx, claims.Actor()), req)
	}
}

func (i *AuthInterceptor) authorize(ctx context.Context, level config.SecurityLevel) (*security.ActorClaims, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	token := bearerToken(md)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	claims, err := i.tokenManager.ValidateToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	if level == config.SecurityOperate && !config.HasOperatorRole(claims.Roles) {
		return nil, status.Error(codes.PermissionDenied, "operator role required")
	}
	return claims, nil
}

func bearerToken(md metadata.MD) string {
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	token := strings.TrimSpace(values[0])
	if len(token) > len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	return token
}

func withActor(ctx context.Context, actor string) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	md.Set(ActorHeader, actor)
	return metadata.NewIncomingContext(ctx, md)
}
