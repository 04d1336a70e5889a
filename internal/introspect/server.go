// Package introspect serves the hook's runtime counters over gRPC. The
// service is defined by an embedded proto source and registered through
// dynamic descriptors, so the repo carries no generated code.
package introspect

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"

	"github.com/kilnvm/kiln/internal/typecheck"
)

// ServiceName is the fully-qualified introspection service name.
const ServiceName = "kiln.introspect.Introspection"

const protoFileName = "kiln/introspect.proto"

const protoSource = `syntax = "proto3";

package kiln.introspect;

message GetStatsRequest {}

message GetStatsResponse {
  uint64 frames = 1;
  uint64 cache_hits = 2;
  uint64 resolutions = 3;
  uint64 unresolved = 4;
  uint64 fail_opens = 5;
  uint64 violations = 6;
}

message DescribeRequest {}

// DescribeResponse carries the serialized FileDescriptorProto of this
// service so clients can discover the schema without codegen.
message DescribeResponse {
  bytes file_descriptor = 1;
}

service Introspection {
  rpc GetStats (GetStatsRequest) returns (GetStatsResponse);
  rpc Describe (DescribeRequest) returns (DescribeResponse);
}
`

// parseServiceDescriptor parses the embedded proto source.
func parseServiceDescriptor() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			protoFileName: protoSource,
		}),
	}
	fds, err := parser.ParseFiles(protoFileName)
	if err != nil {
		return nil, fmt.Errorf("parsing introspection proto: %w", err)
	}
	sd := fds[0].FindService(ServiceName)
	if sd == nil {
		return nil, fmt.Errorf("service %s not found in embedded proto", ServiceName)
	}
	return sd, nil
}

// Server exposes hook counters over gRPC.
type Server struct {
	grpc  *grpc.Server
	sd    *desc.ServiceDescriptor
	stats func() typecheck.Snapshot
	lis   net.Listener
}

// New builds a server around a stats snapshot source, typically
// (*typecheck.Hook).Stats.
func New(stats func() typecheck.Snapshot) (*Server, error) {
	sd, err := parseServiceDescriptor()
	if err != nil {
		return nil, err
	}

	s := &Server{
		grpc:  grpc.NewServer(),
		sd:    sd,
		stats: stats,
	}

	gd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, method := range sd.GetMethods() {
		md := method
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				return srv.(*Server).handleUnary(ctx, md, dec)
			},
		})
	}
	s.grpc.RegisterService(gd, s)

	return s, nil
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("introspect listen: %w", err)
	}
	s.lis = lis
	go func() {
		_ = s.grpc.Serve(lis)
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func (s *Server) handleUnary(_ context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	in := dynamic.NewMessage(md.GetInputType())
	if err := dec(in); err != nil {
		return nil, err
	}

	out := dynamic.NewMessage(md.GetOutputType())

	switch md.GetName() {
	case "GetStats":
		snap := s.stats()
		out.SetFieldByName("frames", snap.Frames)
		out.SetFieldByName("cache_hits", snap.CacheHits)
		out.SetFieldByName("resolutions", snap.Resolutions)
		out.SetFieldByName("unresolved", snap.Unresolved)
		out.SetFieldByName("fail_opens", snap.FailOpens)
		out.SetFieldByName("violations", snap.Violations)

	case "Describe":
		raw, err := proto.Marshal(s.sd.GetFile().AsFileDescriptorProto())
		if err != nil {
			return nil, fmt.Errorf("marshaling descriptor: %w", err)
		}
		out.SetFieldByName("file_descriptor", raw)

	default:
		return nil, fmt.Errorf("method %s not implemented", md.GetName())
	}

	return out, nil
}
