// Package grpc serves the securemsg.v1.Messenger service over gRPC with the
// JSON codec from rpcapi.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/rpcapi"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Logout(ctx context.Context, raw string) error
	Authenticate(ctx context.Context, raw string) (*auth.Identity, error)
	UserExists(ctx context.Context, username string) (bool, error)
}

type MessageService interface {
	Send(ctx context.Context, from, to, content string) (*models.Message, error)
	ListForRecipient(ctx context.Context, username string) []*models.Message
	GetByID(ctx context.Context, username, id string) (*models.Message, error)
}

type GRPCServer struct {
	address  string
	users    UserService
	messages MessageService
	logger   logging.Logger
}

var _ rpcapi.MessengerServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us UserService, ms MessageService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		messages: ms,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(rpcapi.Codec{}),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
	)
	rpcapi.RegisterMessengerServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
