package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

// Service bundles the long-running HTTP surfaces of the harness.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
	log     logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		Healthz: &HealthzServer{log: log},
		Metrics: &MetricsServer{},
		log:     log,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	go func() {
		addr := net.JoinHostPort(HealthzHost, HealthzPort)
		s.log.WithField("addr", addr).Info("starting healthz server")
		if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("error starting healthz server")
			metrics.RecordError("error starting healthz server")
		}
	}()

	go func() {
		addr := net.JoinHostPort(MetricsHost, MetricsPort)
		s.log.WithField("addr", addr).Info("starting metrics server")
		if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("error starting metrics server")
			metrics.RecordError("error starting metrics server")
		}
	}()

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
