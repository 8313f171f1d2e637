// Package worker runs the triage engine against a Redis Stream of
// patient utterances.
//
// Each stream message carries one utterance. The worker reads it
// through a consumer group, runs a full turn on the workflow engine,
// and publishes the completed turn to the reply stream. Malformed
// messages are acknowledged and dropped; turn failures are reported
// on a sibling error stream.
//
// Example usage:
//
//	w := worker.New("worker-1", redisClient, engine,
//	    "triage.requests", "triage-workers", "triage.replies",
//	    5*time.Second, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Health checks run on a separate HTTP server with pluggable checks:
//
//	healthServer := worker.NewHealthServer(8082, redisPing, checks, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
