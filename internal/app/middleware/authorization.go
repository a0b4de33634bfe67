package middleware

import (
	"context"
	"errors"

	"monteur/internal/app/commands"
	"monteur/internal/app/queries"
)

var ErrForbidden = errors.New("middleware: operator privileges required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Restricted marks commands and queries only an operator may run.
type Restricted interface {
	OperatorOnly()
}

// ConditionallyRestricted marks messages that need an operator only for some
// payloads.
type ConditionallyRestricted interface {
	RequiresOperator() bool
}

type operatorKey struct{}

// ContextWithOperator records the authenticated operator for the request.
func ContextWithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

func OperatorFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(operatorKey{}).(string)
	return name, ok && name != ""
}

// OperatorAuthorizer lets restricted messages through only for an authenticated operator.
type OperatorAuthorizer struct{}

func (OperatorAuthorizer) Authorize(ctx context.Context, message any) error {
	_, restricted := message.(Restricted)
	if cond, ok := message.(ConditionallyRestricted); ok && cond.RequiresOperator() {
		restricted = true
	}
	if !restricted {
		return nil
	}
	if _, ok := OperatorFromContext(ctx); !ok {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
