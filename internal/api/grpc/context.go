package grpc

import (
	"context"

	"fleetrent-backend/internal/api/grpc/interceptor"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GetActorFromContext extracts the authenticated actor from the gRPC metadata.
func GetActorFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}
	actors := md.Get(interceptor.ActorHeader)
	if len(actors) == 0 || actors[0] == "" {
		return "", status.Errorf(codes.Unauthenticated, "actor is not provided in metadata")
	}
	return actors[0], nil
}
