package database

import (
	"fmt"
	"net"

	"recruit_chat_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StartHealthServer serve the standard grpc health service on addr
func StartHealthServer(addr, serviceName string) (*grpc.Server, *health.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen grpc health[%s]: %w", addr, err)
	}

	server := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	go func() {
		logger.Log.Info("grpc health server listening", zap.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil {
			logger.Log.Error("grpc health server stopped", zap.Error(err))
		}
	}()

	return server, hs, nil
}
