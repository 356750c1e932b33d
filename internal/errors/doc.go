// Package errors provides coded, actionable errors for errpage.
//
// Every failure the responder, loader, renderer or configuration layer can
// produce on its own has a code (e.g., "E001") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Error Categories
//
//   - manifest: the root layout or root error node is missing or invalid
//   - load: a node's load hook failed or returned nothing
//   - render: the page document could not be produced
//   - config: the configuration file is unreadable or invalid
//   - cli: command-line usage errors
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDetail("manifest has 0 nodes").
//	    WithSuggestion("Register the root layout at ssr.RootLayoutIndex")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Root layout missing from manifest
//	//
//	//   manifest has 0 nodes
//	//
//	//   Hint: Register the root layout at ssr.RootLayoutIndex
//	//
//	//   Learn more: https://vango.dev/docs/errpage/E001
package errors
