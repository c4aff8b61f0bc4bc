// Package shutdown runs cleanup hooks when signals-cli exits, whether the
// command finished normally or the user pressed Ctrl-C.
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return store.Close() })
//	go h.Wait(ctx) // runs the hooks on SIGINT or SIGTERM
//	defer h.Shutdown()
package shutdown
