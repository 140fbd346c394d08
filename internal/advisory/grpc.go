package advisory

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// MethodAdvise is the full RPC name of the unary advice call. Request and
// response travel as google.protobuf.Struct.
const MethodAdvise = "/selftest.advisory.v1.AdvisoryService/Advise"

// #region client-struct
// GRPCClient calls the advice service over gRPC.
type GRPCClient struct {
	conn  grpc.ClientConnInterface
	close func() error
}

// #endregion client-struct

// #region constructor
// NewGRPCClient connects to the advice service at addr.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, close: conn.Close}, nil
}

// NewGRPCClientWithConn wraps an existing connection. Close is then a no-op.
func NewGRPCClientWithConn(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *GRPCClient) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// #endregion close

// #region advise
// Advise sends req and returns the advice text.
func (c *GRPCClient) Advise(ctx context.Context, req Request) (string, error) {
	in, err := requestStruct(req)
	if err != nil {
		return "", fmt.Errorf("advise: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodAdvise, in, out); err != nil {
		return "", fmt.Errorf("advise rpc: %w: %w", ErrUnavailable, err)
	}
	advice, ok := out.GetFields()["advice"]
	if !ok {
		return "", fmt.Errorf("advise rpc: %w: response has no advice", ErrUnavailable)
	}
	return advice.GetStringValue(), nil
}

// #endregion advise

// #region server
// RegisterServer exposes impl as the advice service on s.
func RegisterServer(s grpc.ServiceRegistrar, impl Client) {
	s.RegisterService(&serviceDesc, impl)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "selftest.advisory.v1.AdvisoryService",
	HandlerType: (*Client)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Advise", Handler: adviseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "selftest/advisory/v1/advisory.proto",
}

func adviseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		advice, err := srv.(Client).Advise(ctx, structRequest(req.(*structpb.Struct)))
		if err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"advice": advice})
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodAdvise}
	return interceptor(ctx, in, info, call)
}

// #endregion server

// #region convert
func requestStruct(req Request) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"score":      req.Score,
		"errors":     req.Errors,
		"similarity": req.Similarity,
	})
}

func structRequest(s *structpb.Struct) Request {
	f := s.GetFields()
	return Request{
		Score:      f["score"].GetNumberValue(),
		Errors:     int(f["errors"].GetNumberValue()),
		Similarity: f["similarity"].GetNumberValue(),
	}
}

// #endregion convert
