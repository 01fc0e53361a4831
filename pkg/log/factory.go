package log

import (
	"errors"
	"io"

	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/hub"
)

// ErrNilConfig is returned when a logger is requested without a config.
var ErrNilConfig = errors.New("log: nil config")

// Factory builds loggers bound to a config and a component registry.
// The returned logger is not yet set up; callers invoke Setup.
type Factory interface {
	NewLogger(cfg *config.Config, registry hub.Registry) (Configurable, error)
}

// ZerologFactory builds *ZerologAdapter loggers.
type ZerologFactory struct {
	// Output overrides the writer chosen from the config. Nil uses the config.
	Output io.Writer
}

// NewLogger implements Factory.
func (f ZerologFactory) NewLogger(cfg *config.Config, registry hub.Registry) (Configurable, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return newZerologAdapter(f.Output, registry), nil
}
