package middleware

import (
	"github.com/vango-dev/errpage/pkg/ssr"
)

// Outcome labels.
const (
	OutcomeRendered = "rendered"
	OutcomeFallback = "fallback"
)

// Decorator wraps an error responder.
type Decorator func(next ssr.ErrorResponder) ssr.ErrorResponder

// Chain composes decorators. The first decorator is the outermost.
func Chain(decorators ...Decorator) Decorator {
	return func(next ssr.ErrorResponder) ssr.ErrorResponder {
		for i := len(decorators) - 1; i >= 0; i-- {
			if decorators[i] != nil {
				next = decorators[i](next)
			}
		}
		return next
	}
}

func outcome(resp *ssr.Response) string {
	if resp == nil || resp.Fallback {
		return OutcomeFallback
	}
	return OutcomeRendered
}
