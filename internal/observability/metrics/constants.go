package metrics

import "time"

// ShutdownTimeout bounds the graceful shutdown of the telemetry HTTP server.
const ShutdownTimeout = 5 * time.Second
