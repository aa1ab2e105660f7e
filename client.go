package hostbuf

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Inspector is a client for a remote Server.
type Inspector struct {
	addr     string
	grpcConn *grpc.ClientConn
}

func NewInspector(addr string, opts ...grpc.DialOption) (*Inspector, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial inspector: %v", err)
	}

	return &Inspector{
		addr:     addr,
		grpcConn: conn,
	}, nil
}

func (c *Inspector) ListRuntimes(ctx context.Context) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.grpcConn.Invoke(ctx, inspectorListRuntimes, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("failed to list runtimes at %s: %v", c.addr, err)
	}

	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// RuntimeStats fetches the Stats map of a named runtime. Numbers arrive as
// float64, the only numeric type structpb carries.
func (c *Inspector) RuntimeStats(ctx context.Context, name string) (map[string]any, error) {
	logrus.Debugf("Inspector client: stats %s", name)
	out := new(structpb.Struct)
	if err := c.grpcConn.Invoke(ctx, inspectorRuntimeStats, wrapperspb.String(name), out); err != nil {
		return nil, fmt.Errorf("failed to get stats of %s from %s: %w", name, c.addr, err)
	}
	return out.AsMap(), nil
}

func (c *Inspector) Close() error {
	if c.grpcConn != nil {
		return c.grpcConn.Close()
	}
	return nil
}

func (c *Inspector) Addr() string {
	return c.addr
}
