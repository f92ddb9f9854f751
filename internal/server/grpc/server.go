package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"google.golang.org/grpc"
)

// Authenticator resolves access tokens to users.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// Results serves annotated score rows.
type Results interface {
	Profile(ctx context.Context, userID string, f scores.Filter) ([]approval.Row, error)
	AdminResults(ctx context.Context, f scores.Filter) ([]approval.Row, error)
}

type GRPCServer struct {
	address string
	users   Authenticator
	results Results
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, us Authenticator, rs Results) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		results: rs,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	// registers service
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
