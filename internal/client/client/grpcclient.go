package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatinput"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/netx"
	pb "github.com/dmitrijs2005/gophchat/internal/proto"
	"github.com/dmitrijs2005/gophchat/internal/uploads"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// abandonTimeout bounds the cleanup of an upload that did not complete.
const abandonTimeout = 10 * time.Second

var (
	_ uploads.Transport = (*GRPCClient)(nil)
	_ chatinput.Sink    = (*GRPCClient)(nil)
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.ChatServiceClient
	http        *http.Client
	logger      logging.Logger

	// openMu serialises session opening so concurrent calls share one session.
	openMu    sync.Mutex
	mu        sync.RWMutex
	sessionID string
	token     string
}

// Option customizes a GRPCClient.
type Option func(*GRPCClient)

func WithHTTPClient(c *http.Client) Option {
	return func(s *GRPCClient) { s.http = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *GRPCClient) { s.logger = l }
}

func withSessionToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.SessionTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// sessionTokenInterceptor attaches the session token, opening a session when
// there is none yet, and reopens it once when the server reports the token as
// expired.
func (s *GRPCClient) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == pb.ChatService_OpenSession_FullMethodName || method == pb.ChatService_Ping_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}

	err = invoker(withSessionToken(ctx, token), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	s.logger.Info(ctx, "session token expired, reopening session")
	token, err = s.renewSession(ctx, token)
	if err != nil {
		return err
	}

	return invoker(withSessionToken(ctx, token), method, req, reply, cc, opts...)
}

func (s *GRPCClient) sessionToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *GRPCClient) ensureSession(ctx context.Context) (string, error) {
	if token := s.sessionToken(); token != "" {
		return token, nil
	}
	return s.renewSession(ctx, "")
}

// renewSession opens a new session unless another call already replaced the
// stale token meanwhile.
func (s *GRPCClient) renewSession(ctx context.Context, stale string) (string, error) {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if token := s.sessionToken(); token != stale {
		return token, nil
	}
	if err := s.OpenSession(ctx); err != nil {
		return "", err
	}
	return s.sessionToken(), nil
}

// NewChatClient connects to the server at endpointURL. The connection is
// lazy; no RPC is made until the first call.
func NewChatClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	return newChatClient(endpointURL, nil, opts...)
}

func newChatClient(endpointURL string, dialOpts []grpc.DialOption, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL: endpointURL,
		http:        http.DefaultClient,
		logger:      logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "grpc_client")

	dialOpts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.sessionTokenInterceptor),
	}, dialOpts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewChatServiceClient(conn)

	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// OpenSession starts a new server session and keeps its token.
func (s *GRPCClient) OpenSession(ctx context.Context) error {
	resp, err := s.client.OpenSession(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	var out pb.OpenSessionResponse
	if err := pb.FromStruct(resp, &out); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessionID = out.SessionID
	s.token = out.Token
	s.mu.Unlock()

	s.logger.Debug(ctx, "session opened", "session_id", out.SessionID)
	return nil
}

// SessionID returns the current session, empty before the first call.
func (s *GRPCClient) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}

	return nil
}

// UploadFile reserves a file on the server, streams the contents to the
// presigned URL and confirms the upload. A reservation that cannot be
// confirmed, including one whose ctx was cancelled, is released again.
func (s *GRPCClient) UploadFile(ctx context.Context, c uploads.Candidate) (uploads.Ref, error) {
	if c.Open == nil {
		return uploads.Ref{}, fmt.Errorf("%s: no content", c.Name)
	}
	body, err := c.Open()
	if err != nil {
		return uploads.Ref{}, fmt.Errorf("open %s: %w", c.Name, err)
	}
	defer body.Close()

	req, err := pb.ToStruct(pb.RequestUploadRequest{Name: c.UploadName(), Size: c.Size, MediaType: c.MediaType})
	if err != nil {
		return uploads.Ref{}, err
	}

	resp, err := s.client.RequestUpload(ctx, req)
	if err != nil {
		return uploads.Ref{}, s.mapError(err)
	}

	var target pb.RequestUploadResponse
	if err := pb.FromStruct(resp, &target); err != nil {
		return uploads.Ref{}, err
	}

	ref := uploads.Ref{FileID: target.FileID, UploadURL: target.UploadURL, DeleteURL: target.DeleteURL}

	if err := netx.PutPresigned(ctx, s.http, target.UploadURL, body, c.Size, c.MediaType); err != nil {
		s.abandon(ctx, ref)
		return uploads.Ref{}, err
	}

	if _, err := s.client.ConfirmUpload(ctx, wrapperspb.String(target.FileID)); err != nil {
		s.abandon(ctx, ref)
		return uploads.Ref{}, s.mapError(err)
	}

	s.logger.Debug(ctx, "file uploaded", "file_id", target.FileID, "name", c.Name)

	return ref, nil
}

// abandon releases a reserved upload that will never be confirmed. It runs
// detached from ctx, which is often the reason the upload stopped.
func (s *GRPCClient) abandon(ctx context.Context, ref uploads.Ref) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()

	if err := s.DeleteFile(ctx, ref); err != nil {
		s.logger.Warn(ctx, "cannot release abandoned upload", "file_id", ref.FileID, "error", err)
	}
}

// DeleteFile removes the stored object through its presigned URL and drops
// the server record.
func (s *GRPCClient) DeleteFile(ctx context.Context, ref uploads.Ref) error {
	if ref.DeleteURL != "" {
		if err := netx.DeletePresigned(ctx, s.http, ref.DeleteURL); err != nil {
			return err
		}
	}

	if _, err := s.client.DeleteFile(ctx, wrapperspb.String(ref.FileID)); err != nil {
		return s.mapError(err)
	}
	return nil
}

// SetValue stores a submitted value on the server.
func (s *GRPCClient) SetValue(ctx context.Context, el chatinput.Element, v chatinput.Value, opts chatinput.SetValueOptions) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	req, err := pb.ToStruct(pb.SetValueRequest{
		ElementID:  el.ID,
		Value:      value,
		FromUI:     opts.FromUI,
		FragmentID: opts.FragmentID,
	})
	if err != nil {
		return err
	}

	if _, err := s.client.SetValue(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
