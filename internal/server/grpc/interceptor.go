package grpc

import (
	"context"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

// authenticated lists the methods that need an access token.
var authenticated = map[string]bool{
	FullMethod(MethodGetProfileScores): true,
	FullMethod(MethodListResults):      true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if authenticated[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		user, err := s.users.Authenticate(ctx, accessToken)
		if err != nil {
			if st := toStatus(err); status.Code(st) == codes.Internal {
				s.logger.Error(ctx, "authenticate", "error", err.Error())
				return nil, st
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, userKey, user)

	}

	return handler(ctx, req)
}

func userFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
