package otel

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
	reqid "github.com/hanpama/fieldguide/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(otel.Tracer("fieldguide"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register subscribes span-producing handlers to the global bus:
// http.request, then graphql.operation, then one graphql.resolve per resolver
// call and one store span per store operation beneath it.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

// Open spans are keyed by reqid.Token, not by the request ID, which clients
// may reuse across concurrent requests.
type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // token -> trace.Span
	gqlSpans      sync.Map // token -> trace.Span
	resolverSpans sync.Map // resolverKey -> trace.Span
}

type resolverKey struct {
	token any
	path  string
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context) context.Context {
	tok := reqid.Token(ctx)
	if v, ok := s.gqlSpans.Load(tok); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(tok); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("http.request_id", e.RequestID),
			)
			s.httpSpans.Store(reqid.Token(ctx), span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			v, ok := s.httpSpans.LoadAndDelete(reqid.Token(ctx))
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "")
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.Int("graphql.variables", e.Variables),
			)
			s.gqlSpans.Store(reqid.Token(ctx), span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			v, ok := s.gqlSpans.LoadAndDelete(reqid.Token(ctx))
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Int("graphql.error_count", len(e.Errors)),
				attribute.Bool("graphql.partial", e.Partial),
			)
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ResolverStart) {
			_, span := s.tracer.Start(s.parent(ctx), "graphql.resolve")
			span.SetAttributes(
				attribute.String("graphql.field.type", e.ObjectType),
				attribute.String("graphql.field.name", e.Field),
				attribute.String("graphql.field.path", e.Path),
			)
			s.resolverSpans.Store(resolverKey{reqid.Token(ctx), e.Path}, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
			v, ok := s.resolverSpans.LoadAndDelete(resolverKey{reqid.Token(ctx), e.Path})
			if !ok {
				return
			}
			span := v.(trace.Span)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End()
		}),

		// Store calls only report when they are done, so the span is opened
		// retroactively at the call's start time.
		eventbus.Subscribe(func(ctx context.Context, e events.StoreFinish) {
			end := time.Now()
			_, span := s.tracer.Start(s.parent(ctx), "store."+e.Op,
				trace.WithTimestamp(end.Add(-e.Duration)),
				trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.DBSystemKey.String(e.Backend),
				attribute.String("db.collection", e.Collection),
				attribute.Int("db.records", e.Records),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End(trace.WithTimestamp(end))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
