package channels

import (
	"context"
	"time"
)

// Channel defines the minimal interface for channel lifecycle management.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// TelemetryProvider exposes channel telemetry for status reporting.
type TelemetryProvider interface {
	LastError() time.Time
	LastActivity() time.Time
}
