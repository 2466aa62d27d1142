package health

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zero-day-ai/cpuinfo/types"
)

func startHealthServer(t *testing.T) (*health.Server, grpc.DialOption) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	return hs, dialer
}

func TestServiceCheck(t *testing.T) {
	hs, dialer := startHealthServer(t)
	creds := grpc.WithTransportCredentials(insecure.NewCredentials())

	hs.SetServingStatus("cpuinfo.collector", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus("stale", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	tests := []struct {
		name    string
		service string
		want    string
	}{
		{name: "server", service: "", want: types.StatusHealthy},
		{name: "serving", service: "cpuinfo.collector", want: types.StatusHealthy},
		{name: "not serving", service: "stale", want: types.StatusUnhealthy},
		{name: "unknown service", service: "missing", want: types.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			status := ServiceCheck(ctx, "passthrough:///bufnet", tt.service, dialer, creds)
			if status.Status != tt.want {
				t.Errorf("ServiceCheck(%q) = %s (%s), want %s", tt.service, status.Status, status.Message, tt.want)
			}
		})
	}
}

func TestServiceCheckEmptyAddress(t *testing.T) {
	status := ServiceCheck(context.Background(), "", "")
	if !status.IsUnhealthy() {
		t.Errorf("expected unhealthy status for empty address, got %s", status.Status)
	}
}
