// Package shutdown coordinates graceful termination of shardmap-server.
//
// Hooks registered with OnShutdown run in reverse registration order once
// SIGINT or SIGTERM arrives (or the parent context is cancelled), under a
// shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(httpServer.Shutdown)
//	if err := h.Wait(); err != nil {
//		log.Error("shutdown", "error", err)
//	}
package shutdown
