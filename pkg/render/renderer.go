package render

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vango-dev/errpage/internal/errors"
	"github.com/vango-dev/errpage/pkg/assets"
	"github.com/vango-dev/errpage/pkg/ssr"
)

// DefaultClientScript is the client entry used when none is configured.
const DefaultClientScript = "/_errpage/client.js"

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// ClientScript is the path to the client entry module.
	// Defaults to DefaultClientScript if not specified.
	ClientScript string

	// Lang is the document language. Defaults to "en".
	Lang string

	// StyleSheets are linked from every error page.
	StyleSheets []string

	// Assets, when set, resolves ClientScript and StyleSheets to their
	// fingerprinted paths.
	Assets assets.Resolver
}

// Renderer renders error pages. It holds no per-render state and is safe
// for concurrent use.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.ClientScript == "" {
		config.ClientScript = DefaultClientScript
	}
	if config.Assets != nil {
		config.ClientScript = config.Assets.Asset(config.ClientScript)
		sheets := make([]string, len(config.StyleSheets))
		for i, href := range config.StyleSheets {
			sheets[i] = config.Assets.Asset(href)
		}
		config.StyleSheets = sheets
	}
	return &Renderer{config: config}
}

// Payload is the JSON document embedded for the client.
type Payload struct {
	Status int            `json:"status"`
	Error  PayloadError   `json:"error"`
	Stuff  map[string]any `json:"stuff"`
	Router bool           `json:"router"`
}

// PayloadError is the client-visible part of the rendered error.
type PayloadError struct {
	Message string `json:"message"`
}

// Render implements ssr.Renderer.
func (r *Renderer) Render(ctx context.Context, in ssr.RenderInput) (*ssr.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := make([]*ssr.LoadedNode, 0, len(in.Branch))
	for _, n := range in.Branch {
		if n != nil && n.Node != nil && n.Node.Module != nil {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return nil, errors.New("E041")
	}

	status := in.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	page := PageData{
		Title:       pageTitle(in, status),
		Lang:        r.config.Lang,
		StyleSheets: r.config.StyleSheets,
	}
	if description := in.Stuff.String("description"); description != "" {
		page.Meta = append(page.Meta, MetaTag{Name: "description", Content: description})
	}

	if in.SSR {
		page.Body = r.branchWriter(nodes, in, status)
	}

	// Without SSR the client has to render the page, so it always gets
	// the payload and script.
	if in.PageConfig.Hydrate || !in.SSR {
		msg := ""
		if in.Error != nil {
			msg = in.Error.Error()
		}
		page.Payload = Payload{
			Status: status,
			Error:  PayloadError{Message: msg},
			Stuff:  in.Stuff.Map(),
			Router: in.PageConfig.Router,
		}
		page.ClientScript = r.config.ClientScript
	}

	var buf bytes.Buffer
	if err := r.RenderPage(&buf, page); err != nil {
		return nil, err
	}

	return &ssr.Response{
		Status: status,
		Headers: http.Header{
			"Content-Type": {"text/html; charset=utf-8"},
		},
		Body: buf.String(),
	}, nil
}

// branchWriter chains the branch so that each component's Slot renders
// the next node inward.
func (r *Renderer) branchWriter(nodes []*ssr.LoadedNode, in ssr.RenderInput, status int) func(io.Writer) error {
	var slot func(io.Writer) error
	for i := len(nodes) - 1; i >= 0; i-- {
		node, inner := nodes[i], slot
		slot = func(w io.Writer) error {
			return renderNode(w, node, in, status, inner)
		}
	}
	return slot
}

func renderNode(w io.Writer, node *ssr.LoadedNode, in ssr.RenderInput, status int, inner func(io.Writer) error) error {
	component := node.Node.Module.Component
	if component == nil {
		if inner == nil {
			return nil
		}
		return inner(w)
	}

	err := component(w, ssr.ComponentProps{
		Props:  node.Props,
		Stuff:  in.Stuff,
		Status: status,
		Error:  in.Error,
		URL:    in.URL,
		Slot:   inner,
	})
	if err == nil {
		return nil
	}

	var coded *errors.Error
	if stderrors.As(err, &coded) && coded.Code == "E040" {
		return err
	}
	return errors.New("E040").WithDetail("component " + node.Node.ID + " failed").Wrap(err)
}

func pageTitle(in ssr.RenderInput, status int) string {
	if title := in.Stuff.String("title"); title != "" {
		return title
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
