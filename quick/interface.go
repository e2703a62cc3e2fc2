// Package quick builds a ready-to-use sink and logger from "key=value"
// configuration strings, for programs that do not want to assemble a Config.
package quick

import (
	"context"
	"fmt"

	"github.com/filesink/filesink"
)

// New parses the configuration statements, constructs a sink and returns a
// logger over it. The directory key is required. e.g.
//
//	logger, sink, err := quick.New(ctx, "directory=/var/log/app", "format=ndjson")
func New(ctx context.Context, args ...string) (*filesink.Logger, *filesink.Sink, error) {
	cfg, err := config(args...)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Directory == "" {
		return nil, nil, fmt.Errorf("quick: directory is required")
	}

	sink, err := filesink.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return filesink.NewLogger(sink, cfg), sink, nil
}
