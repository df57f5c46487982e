package store

import (
	"errors"

	"timeline/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithPG installs an already open postgres seam; Open then skips dialing
// even when PG is enabled in the config
func WithPG(tx TxRunner) Option {
	return func(s *Store) error {
		if tx == nil {
			return errors.New("store: WithPG needs a runner")
		}
		s.PG = tx
		return nil
	}
}
