package sandbox

import (
	"fmt"

	"github.com/sarmentow/codepencil/internal/config"
)

// FromConfig builds the runtime selected by bridge.runtime.
func FromConfig(cfg *config.Config) (Runtime, error) {
	switch cfg.Bridge.Runtime {
	case config.RuntimeYaegi, "":
		return NewYaegi(cfg.Bridge.AllowedImports, cfg.ExecTimeout()), nil
	case config.RuntimeCommand:
		rt, err := NewCommand(cfg.Bridge.Command, cfg.ExecTimeout())
		if err != nil {
			return nil, err
		}
		// Scratch files land in the data dir rather than wherever the CLI ran.
		return rt.WithDir(cfg.Paths.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown runtime %q", cfg.Bridge.Runtime)
	}
}
