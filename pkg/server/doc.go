// Package server mounts error pages on an HTTP router.
//
// Pages are registered with Handle. A page that returns an error, or
// panics, is answered with the root error page rendered by the configured
// ssr.ErrorResponder. Unknown routes get the same treatment with a 404.
//
//	srv := server.New(server.Config{
//	    Responder: ssr.NewResponder(loader.New(logger), render.NewRenderer(render.RendererConfig{}), logger),
//	    Options:   opts,
//	    Logger:    logger,
//	})
//	srv.Handle("/orders/{id}", func(w http.ResponseWriter, r *http.Request) error {
//	    order, err := store.Order(r.Context(), chi.URLParam(r, "id"))
//	    if err != nil {
//	        return server.NotFound("order not found")
//	    }
//	    return writeOrder(w, order)
//	})
//	log.Fatal(srv.Run(ctx, ":3000"))
//
// Errors implementing StatusCoder choose the status of the error page.
// Appending ?ssr=0 to a URL leaves rendering of the page to the client.
package server
