package buildlog

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
)

// GuardedDialer wraps dial with a circuit breaker so builds stop waiting on a
// collector that keeps refusing connections. While the breaker is open the
// stream method fails to open with resilience.ErrCircuitOpen.
func GuardedDialer(dial Dialer, b *resilience.Breaker) Dialer {
	return func(ctx context.Context, job JobData) (io.WriteCloser, error) {
		return resilience.Execute(b, func() (io.WriteCloser, error) {
			return dial(ctx, job)
		})
	}
}

// TCPDialer connects to a log collector at addr. Each connection starts with
// one header line naming the job so the collector can file the stream.
func TCPDialer(addr string, timeout time.Duration) Dialer {
	d := net.Dialer{Timeout: timeout}
	return func(ctx context.Context, job JobData) (io.WriteCloser, error) {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintf(conn, "%s %s\n", job.BuildID, job); err != nil {
			conn.Close()
			return nil, fmt.Errorf("collector %s: %w", addr, err)
		}
		return conn, nil
	}
}

// CollectorDialer returns the guarded TCP dialer for the configured
// collector, or nil when builds log to files.
func CollectorDialer(cfg config.BuildLogConfig, log *logging.Logger) Dialer {
	if cfg.Collector == "" {
		return nil
	}
	if log == nil {
		log = logging.NewNop()
	}
	b := resilience.New("log-collector", resilience.Settings{
		Cooldown: cfg.CollectorCooldown,
		Trip:     resilience.ConsecutiveFailures(cfg.CollectorTrip),
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("Log collector breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return GuardedDialer(TCPDialer(cfg.Collector, cfg.CollectorTimeout), b)
}
