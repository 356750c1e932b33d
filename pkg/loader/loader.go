// Package loader provides the default ssr.Loader, which runs a module's
// Load hook and threads stuff from one node to the next.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
	"github.com/vango-dev/errpage/pkg/stuff"
)

// ErrUnknown is handed to error loads that were started without an error.
var ErrUnknown = fmt.Errorf("loader: unknown error")

// Loader runs module Load hooks.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "loader")}
}

// Load implements ssr.Loader.
func (l *Loader) Load(ctx context.Context, in ssr.LoadInput) (loaded *ssr.LoadedNode, err error) {
	if in.Node == nil || in.Node.Module == nil {
		return nil, errors.New("E022")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.IsError {
		if in.Status == 0 {
			in.Status = http.StatusInternalServerError
		}
		if in.Error == nil {
			in.Error = ErrUnknown
		}
	}

	loaded = &ssr.LoadedNode{
		Node:   in.Node,
		Props:  map[string]any{},
		Stuff:  in.Stuff,
		Status: in.Status,
		Error:  in.Error,
	}

	hook := in.Node.Module.Load
	if hook == nil {
		return loaded, nil
	}

	defer func() {
		if v := recover(); v != nil {
			loaded = nil
			err = errors.New("E020").
				WithDetail("load hook of " + in.Node.ID + " panicked").
				Wrap(errinfo.Recovered(v))
		}
	}()

	l.logger.Debug("loading node",
		"node", in.Node.ID,
		"error_page", in.IsError,
		"prerender", in.PrerenderEnabled,
	)

	out, err := hook(ctx, ssr.NewLoadEvent(in, l.logger))
	if err != nil {
		return nil, errors.New("E020").WithDetail("load hook of " + in.Node.ID + " failed").Wrap(err)
	}

	for k, v := range out.Props {
		loaded.Props[k] = v
	}
	if len(out.Stuff) > 0 {
		loaded.Stuff = in.Stuff.Merge(stuff.New(out.Stuff))
	}
	return loaded, nil
}
