package health

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zero-day-ai/cpuinfo/types"
)

// ServiceCheck queries the gRPC health service at address, such as a running
// collector. An empty service asks about the server as a whole.
//
// Example:
//
//	status := health.ServiceCheck(ctx, "localhost:50051", collector.ServiceName)
func ServiceCheck(ctx context.Context, address, service string, opts ...grpc.DialOption) types.HealthStatus {
	if address == "" {
		return types.NewUnhealthyStatus("address cannot be empty", nil)
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to create client for %s", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}
	defer conn.Close()

	return checkService(ctx, grpc_health_v1.NewHealthClient(conn), address, service)
}

func checkService(ctx context.Context, client grpc_health_v1.HealthClient, address, service string) types.HealthStatus {
	details := map[string]any{
		"address": address,
		"service": service,
	}

	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		details["error"] = err.Error()
		return types.NewUnhealthyStatus(fmt.Sprintf("health check of %s failed", address), details)
	}

	details["serving_status"] = resp.GetStatus().String()
	switch resp.GetStatus() {
	case grpc_health_v1.HealthCheckResponse_SERVING:
		return types.NewHealthyStatus(fmt.Sprintf("%s is serving", address))
	case grpc_health_v1.HealthCheckResponse_NOT_SERVING:
		return types.NewUnhealthyStatus(fmt.Sprintf("%s is not serving", address), details)
	default:
		return types.NewDegradedStatus(fmt.Sprintf("%s reports status %s", address, resp.GetStatus()), details)
	}
}
