// Package grpc exposes the chat services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	pb "github.com/dmitrijs2005/gophchat/internal/proto"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/grpc"
)

type SessionService interface {
	Open(ctx context.Context) (*models.Session, string, error)
	Verify(token string) (string, error)
}

type FileService interface {
	RequestUpload(ctx context.Context, sessionID, name string, size int64, mediaType string) (*services.UploadTarget, error)
	Confirm(ctx context.Context, sessionID, fileID string) error
	Delete(ctx context.Context, sessionID, fileID string) error
}

type ValueService interface {
	Set(ctx context.Context, v *models.Value) error
}

type GRPCServer struct {
	pb.UnimplementedChatServiceServer
	address  string
	sessions SessionService
	files    FileService
	values   ValueService
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, ss SessionService, fs FileService, vs ValueService, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: ss,
		files:    fs,
		values:   vs,
		metrics:  m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.sessionTokenInterceptor))
	pb.RegisterChatServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
