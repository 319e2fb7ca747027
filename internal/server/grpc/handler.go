package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/common"
	pb "github.com/dmitrijs2005/gophchat/internal/proto"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps service errors to gRPC statuses. Unknown errors are logged
// and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrFileTooLarge),
		errors.Is(err, common.ErrInvalidFileName),
		errors.Is(err, services.ErrInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrFileNotPending):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

func (s *GRPCServer) mustSession(ctx context.Context) (string, error) {
	id, ok := sessionIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "no session")
	}
	return id, nil
}

func (s *GRPCServer) OpenSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	session, token, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.metrics.SessionsOpened.Inc()
	s.logger.Info(ctx, "session opened", "session_id", session.ID)

	resp, err := pb.ToStruct(pb.OpenSessionResponse{SessionID: session.ID, Token: token})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}

func (s *GRPCServer) RequestUpload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID, err := s.mustSession(ctx)
	if err != nil {
		return nil, err
	}

	var in pb.RequestUploadRequest
	if err := pb.FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	target, err := s.files.RequestUpload(ctx, sessionID, in.Name, in.Size, in.MediaType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.metrics.UploadsStarted.Inc()
	s.metrics.UploadBytes.Add(float64(in.Size))
	s.logger.Debug(ctx, "upload requested", "session_id", sessionID, "file_id", target.FileID, "size", in.Size)

	resp, err := pb.ToStruct(pb.RequestUploadResponse{
		FileID:    target.FileID,
		UploadURL: target.UploadURL,
		DeleteURL: target.DeleteURL,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}

func (s *GRPCServer) ConfirmUpload(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	sessionID, err := s.mustSession(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.Confirm(ctx, sessionID, req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.metrics.UploadsFinished.WithLabelValues("confirmed").Inc()
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	sessionID, err := s.mustSession(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.Delete(ctx, sessionID, req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.metrics.UploadsFinished.WithLabelValues("deleted").Inc()
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) SetValue(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sessionID, err := s.mustSession(ctx)
	if err != nil {
		return nil, err
	}

	var in pb.SetValueRequest
	if err := pb.FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	v := &models.Value{
		SessionID:  sessionID,
		ElementID:  in.ElementID,
		Value:      in.Value,
		FromUI:     in.FromUI,
		FragmentID: in.FragmentID,
	}
	if err := s.values.Set(ctx, v); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	origin := "programmatic"
	if in.FromUI {
		origin = "ui"
	}
	s.metrics.ValuesSet.WithLabelValues(origin).Inc()
	s.logger.Info(ctx, "value stored", "session_id", sessionID, "element_id", in.ElementID, "from_ui", in.FromUI)

	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}
