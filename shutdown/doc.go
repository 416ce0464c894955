// Package shutdown stops the server's components in order.
//
// Components register a handler with a phase. On SIGTERM, SIGINT or an
// explicit Shutdown call, phases run lowest first; handlers sharing a phase
// run concurrently. Every handler sees the same context, cancelled when the
// overall timeout runs out.
//
// # Phases
//
//   - PhaseHTTP (10): stop accepting requests, drain in-flight ones
//   - PhaseBus (20): close the event bus
//   - PhaseStorage (30): close the store, flush telemetry
//
// # Usage
//
//	coord := shutdown.NewCoordinator(shutdown.Config{Timeout: 15 * time.Second, Logger: logger})
//	coord.RegisterFunc("http", shutdown.PhaseHTTP, srv.Shutdown)
//	coord.RegisterCloser("store", shutdown.PhaseStorage, store)
//	stop := coord.HandleSignals()
//	defer stop()
//
//	<-coord.Done()
package shutdown
