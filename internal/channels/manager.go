package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Status is a point-in-time view of one channel.
type Status struct {
	Name         string    `json:"name"`
	Running      bool      `json:"running"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	LastError    time.Time `json:"last_error,omitempty"`
}

// Manager starts and stops a fixed set of channels together.
type Manager struct {
	channels []Channel
	logger   *slog.Logger
}

// NewManager creates a new channel manager. Nil channels are skipped.
func NewManager(logger *slog.Logger, channels ...Channel) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kept := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil {
			kept = append(kept, ch)
		}
	}
	return &Manager{channels: kept, logger: logger}
}

// Start starts every channel in order. If one fails, the channels already
// started are stopped again.
func (m *Manager) Start(ctx context.Context) error {
	for i, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			for _, started := range m.channels[:i] {
				if stopErr := started.Stop(); stopErr != nil {
					m.logger.Warn("channel stop failed", "channel", started.Name(), "error", stopErr)
				}
			}
			return fmt.Errorf("start %s: %w", ch.Name(), err)
		}
		m.logger.Info("channel started", "channel", ch.Name())
	}
	return nil
}

// Stop stops every channel and joins their errors.
func (m *Manager) Stop() error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Statuses reports running state and telemetry for each channel.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.channels))
	for _, ch := range m.channels {
		st := Status{Name: ch.Name(), Running: ch.IsRunning()}
		if tp, ok := ch.(TelemetryProvider); ok {
			st.LastActivity = tp.LastActivity()
			st.LastError = tp.LastError()
		}
		out = append(out, st)
	}
	return out
}
