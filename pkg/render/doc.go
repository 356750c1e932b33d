// Package render provides the default ssr.Renderer: it turns a loaded
// layout/error branch into a complete HTML document.
//
// Components in the branch are rendered innermost first; each outer
// component receives the inner HTML through its Slot. The resulting
// document includes:
//
//   - DOCTYPE, charset and viewport meta tags
//   - A title taken from stuff["title"], or "<status> <status text>"
//   - The branch inside the mount element (omitted when SSR is off)
//   - A JSON payload and client script tag when hydration is on, or
//     whenever the client must render the page itself
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	resp, err := renderer.Render(ctx, input)
//
// To write a document directly:
//
//	err := renderer.RenderPage(w, render.PageData{Title: "Not Found"})
//
// # Security
//
// All text and attribute values written by this package are escaped.
// Components are trusted to escape what they write; EscapeHTML is
// exported for them.
package render
