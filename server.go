package hostbuf

import (
	"HostBuf/registry"
	"HostBuf/singleflight"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server exposes the runtimes of this process to remote inspectors. It only
// reads counters; it never enters a runtime.
type Server struct {
	addr         string
	serviceName  string
	opts         ServerOptions
	grpcServer   *grpc.Server
	healthServer *health.Server
	snapshots    singleflight.Group
	stopCh       chan error
	stopOnce     sync.Once
}

type ServerOptions struct {
	// Register announces the server in etcd under /services/<serviceName>/.
	Register bool
}

var DefaultServerOptions = ServerOptions{
	Register: true,
}

func NewServer(addr string, serviceName string, opts ServerOptions) (*Server, error) {
	if serviceName == "" {
		return nil, errors.New("service name is required")
	}

	grpcServer := grpc.NewServer()
	service := &Server{
		addr:         addr,
		serviceName:  serviceName,
		opts:         opts,
		grpcServer:   grpcServer,
		healthServer: health.NewServer(),
		stopCh:       make(chan error),
	}
	RegisterInspectorServer(grpcServer, service)

	healthpb.RegisterHealthServer(grpcServer, service.healthServer)
	service.healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return service, nil
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen at: %v", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	if s.opts.Register {
		if err := registry.Register(s.serviceName, lis.Addr().String(), s.stopCh); err != nil {
			logrus.Errorf("failed to register service: %v", err)
			return err
		}
	}

	logrus.Infof("Inspector starting at %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.healthServer.Shutdown()
		s.grpcServer.GracefulStop()
	})
}

func (s *Server) ListRuntimes(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	names := ListRuntimes()
	slices.Sort(names)

	values := make([]any, len(names))
	for i, name := range names {
		values[i] = name
	}
	return structpb.NewList(values)
}

func (s *Server) RuntimeStats(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	name := req.GetValue()
	logrus.Infof("Inspector: stats %s", name)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "runtime name is required")
	}

	rt := GetRuntime(name)
	if rt == nil {
		return nil, status.Errorf(codes.NotFound, "runtime %s not found", name)
	}

	// concurrent requests for the same runtime share one snapshot
	val, err, _ := s.snapshots.Do(name, func() (any, error) {
		return structpb.NewStruct(rt.Stats())
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return val.(*structpb.Struct), nil
}
