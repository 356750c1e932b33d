// Package ssr renders error pages for server-side rendered applications.
//
// When a page fails to render, the Responder loads the root layout
// (manifest index RootLayoutIndex) and the root error page (RootErrorIndex),
// threads the layout's stuff into the error page load, and hands both to a
// Renderer. If any of that fails, the failure is normalized with
// errinfo.Coalesce, reported to Options.HandleError, and a fixed 500
// response is returned instead.
//
// # Usage
//
//	responder := ssr.NewResponder(loader.New(nil), render.NewRenderer(render.RendererConfig{}), logger)
//
//	resp := responder.RespondWithError(ctx, ssr.ErrorInput{
//	    Request: ssr.RequestFromHTTP(r),
//	    Options: opts,
//	    State:   &ssr.State{},
//	    Status:  http.StatusNotFound,
//	    Error:   err,
//	    SSR:     true,
//	})
//
// # Fallback body
//
// The fallback body is the normalized error's stack trace. That discloses
// internals to clients, so production deployments should set
// Options.RedactFallback.
package ssr
