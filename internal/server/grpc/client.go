package grpc

import (
	"context"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Client calls a remote voicepay.VoiceAuth service.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// NewClient connects to target over plaintext. Extra dial options are
// appended, which lets tests dial an in-memory listener.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// SetToken sets the access token sent with every following call.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.token)
	}
	return c.conn.Invoke(ctx, FullMethod(method), in, out)
}

func call[T any](ctx context.Context, c *Client, method string, in any) (*T, error) {
	out := new(T)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, userID string, audio []byte) (*RegisterResponse, error) {
	return call[RegisterResponse](ctx, c, MethodRegister, &RegisterRequest{UserID: userID, Audio: audio})
}

// Authenticate stores the returned session token on success so that
// AnalyzePayment can follow.
func (c *Client) Authenticate(ctx context.Context, audio []byte) (*AuthenticateResponse, error) {
	out := new(AuthenticateResponse)
	if err := c.invoke(ctx, MethodAuthenticate, &AuthenticateRequest{Audio: audio}, out); err != nil {
		return nil, err
	}
	if out.SessionToken != "" {
		c.token = out.SessionToken
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*GetUserResponse, error) {
	return call[GetUserResponse](ctx, c, MethodGetUser, &UserRequest{UserID: userID})
}

func (c *Client) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	return call[ListUsersResponse](ctx, c, MethodListUsers, &ListUsersRequest{})
}

func (c *Client) Deactivate(ctx context.Context, userID string) error {
	return c.invoke(ctx, MethodDeactivate, &UserRequest{UserID: userID}, new(StatusResponse))
}

func (c *Client) Reactivate(ctx context.Context, userID string) error {
	return c.invoke(ctx, MethodReactivate, &UserRequest{UserID: userID}, new(StatusResponse))
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.invoke(ctx, MethodDeleteUser, &UserRequest{UserID: userID}, new(StatusResponse))
}

func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	return call[StatsResponse](ctx, c, MethodStats, &StatsRequest{})
}

func (c *Client) AnalyzePayment(ctx context.Context, transcript string) (*AnalyzePaymentResponse, error) {
	return call[AnalyzePaymentResponse](ctx, c, MethodAnalyzePayment, &AnalyzePaymentRequest{Transcript: transcript})
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	return call[PingResponse](ctx, c, MethodPing, &PingRequest{})
}
