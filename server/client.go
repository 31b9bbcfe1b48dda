package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Controller is the client side of the sequencer service.
type Controller interface {
	// HandleCommand sends one command and returns its status.
	HandleCommand(ctx context.Context, command byte, payload ...byte) (string, error)
	// Inspect returns the program listing.
	Inspect(ctx context.Context) (string, error)
	// Snapshot returns the current program as a CBOR image.
	Snapshot(ctx context.Context) ([]byte, error)
	// Load replaces the program with a CBOR image and returns the status.
	Load(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Client talks to the sequencer service using the Connect protocol.
type Client struct {
	handleCommand *connect.Client[wrapperspb.BytesValue, wrapperspb.StringValue]
	inspect       *connect.Client[emptypb.Empty, wrapperspb.StringValue]
	snapshot      *connect.Client[emptypb.Empty, wrapperspb.BytesValue]
	load          *connect.Client[wrapperspb.BytesValue, wrapperspb.StringValue]
}

// NewClient creates a Connect client for the service at baseURL, for
// example "http://localhost:4568".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		handleCommand: connect.NewClient[wrapperspb.BytesValue, wrapperspb.StringValue](httpClient, baseURL+HandleCommandProcedure, opts...),
		inspect:       connect.NewClient[emptypb.Empty, wrapperspb.StringValue](httpClient, baseURL+InspectProcedure, opts...),
		snapshot:      connect.NewClient[emptypb.Empty, wrapperspb.BytesValue](httpClient, baseURL+SnapshotProcedure, opts...),
		load:          connect.NewClient[wrapperspb.BytesValue, wrapperspb.StringValue](httpClient, baseURL+LoadProcedure, opts...),
	}
}

func (c *Client) HandleCommand(ctx context.Context, command byte, payload ...byte) (string, error) {
	resp, err := c.handleCommand.CallUnary(ctx, connect.NewRequest(wrapperspb.Bytes(EncodeFrame(command, payload...))))
	if err != nil {
		return "", err
	}
	return resp.Msg.GetValue(), nil
}

func (c *Client) Inspect(ctx context.Context) (string, error) {
	resp, err := c.inspect.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return "", err
	}
	return resp.Msg.GetValue(), nil
}

func (c *Client) Snapshot(ctx context.Context) ([]byte, error) {
	resp, err := c.snapshot.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.GetValue(), nil
}

func (c *Client) Load(ctx context.Context, image []byte) (string, error) {
	resp, err := c.load.CallUnary(ctx, connect.NewRequest(wrapperspb.Bytes(image)))
	if err != nil {
		return "", err
	}
	return resp.Msg.GetValue(), nil
}

// Close is a no-op; the HTTP client is owned by the caller.
func (c *Client) Close() error {
	return nil
}

// GRPCClient talks to the sequencer service over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC connects to target ("host:port"). Without options the
// connection is unencrypted.
func DialGRPC(target string, opts ...grpc.DialOption) (*GRPCClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) HandleCommand(ctx context.Context, command byte, payload ...byte) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, HandleCommandProcedure, wrapperspb.Bytes(EncodeFrame(command, payload...)), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) Inspect(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, InspectProcedure, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) Snapshot(ctx context.Context) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, SnapshotProcedure, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func (c *GRPCClient) Load(ctx context.Context, image []byte) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, LoadProcedure, wrapperspb.Bytes(image), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Close tears down the connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

var (
	_ Controller = (*Client)(nil)
	_ Controller = (*GRPCClient)(nil)
)
