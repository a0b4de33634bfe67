package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"monteur/internal/app/commands"
	"monteur/internal/app/queries"
)

const tracerName = "monteur/internal/app"

// Tracing opens a span per command. A nil tracer falls back to the global provider.
func Tracing(tracer trace.Tracer) CommandMiddleware {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, span := tracer.Start(ctx, "command "+cmd.Key(), trace.WithAttributes(attribute.String("app.command", cmd.Key())))
			defer span.End()
			res, err := nextFn(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			return res, nil
		})
	}
}

func QueryTracing(tracer trace.Tracer) QueryMiddleware {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, span := tracer.Start(ctx, "query "+q.Key(), trace.WithAttributes(attribute.String("app.query", q.Key())))
			defer span.End()
			res, err := nextFn(ctx, q)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			return res, nil
		})
	}
}
