// Package probe serves the standard gRPC health protocol so orchestrators
// that speak grpc_health_v1 can probe plotviz next to its HTTP /healthz.
package probe

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name under which plotviz reports its own status. The empty
// service name reports the overall server status.
const Service = "data-plot-visualizer"

type Probe struct {
	server *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// New creates a probe that reports NOT_SERVING until SetServing is called.
func New(logger *slog.Logger) *Probe {
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	reflection.Register(srv)
	return &Probe{server: srv, health: hs, logger: logger}
}

// SetServing flips both the overall and the plotviz status.
func (p *Probe) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	p.health.SetServingStatus("", status)
	p.health.SetServingStatus(Service, status)
}

// Serve blocks serving on lis until Stop is called.
func (p *Probe) Serve(lis net.Listener) error {
	p.logger.Info("grpc health probe listening", "address", lis.Addr().String())
	return p.server.Serve(lis)
}

// Stop marks the service NOT_SERVING and drains open health streams.
func (p *Probe) Stop() {
	p.health.Shutdown()
	p.server.GracefulStop()
}
