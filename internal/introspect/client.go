package introspect

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kilnvm/kiln/internal/typecheck"
)

// FetchStats invokes GetStats on a running introspection server using
// dynamic messages built from the same embedded descriptor.
func FetchStats(ctx context.Context, target string) (typecheck.Snapshot, error) {
	var snap typecheck.Snapshot

	sd, err := parseServiceDescriptor()
	if err != nil {
		return snap, err
	}
	md := sd.FindMethodByName("GetStats")
	if md == nil {
		return snap, fmt.Errorf("GetStats not found in %s", ServiceName)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return snap, fmt.Errorf("connecting to %s: %w", target, err)
	}
	defer conn.Close()

	req := dynamic.NewMessage(md.GetInputType())
	resp := dynamic.NewMessage(md.GetOutputType())

	if err := conn.Invoke(ctx, "/"+ServiceName+"/GetStats", req, resp); err != nil {
		return snap, fmt.Errorf("RPC failed: %w", err)
	}

	snap.Frames = fieldUint64(resp, "frames")
	snap.CacheHits = fieldUint64(resp, "cache_hits")
	snap.Resolutions = fieldUint64(resp, "resolutions")
	snap.Unresolved = fieldUint64(resp, "unresolved")
	snap.FailOpens = fieldUint64(resp, "fail_opens")
	snap.Violations = fieldUint64(resp, "violations")
	return snap, nil
}

func fieldUint64(msg *dynamic.Message, name string) uint64 {
	v, err := msg.TryGetFieldByName(name)
	if err != nil {
		return 0
	}
	u, ok := v.(uint64)
	if !ok {
		return 0
	}
	return u
}
