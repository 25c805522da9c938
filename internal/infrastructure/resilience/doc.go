// Package resilience provides a circuit breaker for remote dependencies such
// as build-log collectors.
//
// States:
//   - Closed: calls pass; failures are counted and Trip decides when to open
//   - Open: calls fail fast with ErrCircuitOpen until the cooldown elapses
//   - Half-open: up to MaxProbes calls pass; one failure reopens, MaxProbes
//     consecutive successes close
//
// Example Usage:
//
//	b := resilience.New("collector", resilience.Settings{
//		Cooldown: 30 * time.Second,
//		Trip:     resilience.ConsecutiveFailures(3),
//	})
//	conn, err := resilience.Execute(b, func() (net.Conn, error) {
//		return net.Dial("tcp", addr)
//	})
package resilience
