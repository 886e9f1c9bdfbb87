// tracelogging-sample emits a small tree of OTel spans through the platform
// TraceLogging exporter, for smoke-testing collection (eg, with WPR on
// Windows or perf on Linux).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Microsoft/go-otel-tracelogging/exporters/jsonwriter"
)

const appName = "tracelogging-sample"

const (
	providerFlagName = "provider"
	groupFlagName    = "group"
	payloadFlagName  = "json-payload"
	activityFlagName = "activity-events"
	countFlagName    = "count"
	stdoutFlagName   = "stdout"
	verboseFlagName  = "verbose"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  appName,
		Usage: "emit sample OTel spans as TraceLogging events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  providerFlagName,
				Usage: "tracing provider name",
				Value: "MyCompany_MyComponent",
			},
			&cli.StringFlag{
				Name:  groupFlagName,
				Usage: "provider group (name on Linux, GUID on Windows)",
			},
			&cli.BoolFlag{
				Name:  payloadFlagName,
				Usage: "write span attributes as a single JSON payload field",
			},
			&cli.BoolFlag{
				Name:  activityFlagName,
				Usage: "write activity start/stop events instead of one event per span",
			},
			&cli.IntFlag{
				Name:  countFlagName,
				Usage: "number of request spans to emit",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  stdoutFlagName,
				Usage: "write spans as JSON to stdout instead of the platform tracing facility",
			},
			&cli.BoolFlag{
				Name:    verboseFlagName,
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if c.Bool(verboseFlagName) {
		logrus.SetLevel(logrus.DebugLevel)
	}

	exporter, err := newExporter(c)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.TelemetrySDKLanguageGo,
			semconv.ServiceName(appName),
		)),
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("tracer provider shutdown")
		}
	}()

	tracer := tp.Tracer(appName)
	for i := 0; i < c.Int(countFlagName); i++ {
		emitRequest(c.Context, tracer, i)
	}

	logrus.WithField("spans", c.Int(countFlagName)).Info("done")
	return nil
}

func newExporter(c *cli.Context) (tracesdk.SpanExporter, error) {
	if c.Bool(stdoutFlagName) {
		return jsonwriter.New(os.Stdout)
	}
	return newPlatformExporter(c)
}

// emitRequest emits one simulated request: a server span with a nested
// internal span, a span event, and a link back to a made-up upstream trace.
// Odd requests fail.
func emitRequest(ctx context.Context, tracer trace.Tracer, i int) {
	log := logrus.WithField("request", i)

	upstream := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x0a, byte(i), 0x03},
		SpanID:  trace.SpanID{0x0b, byte(i)},
	})

	ctx, span := tracer.Start(ctx, "GET /users",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/users"),
			attribute.Int("request.index", i),
		),
		trace.WithLinks(trace.Link{SpanContext: upstream}),
	)
	defer span.End()

	lookup(ctx, tracer, i)

	if i%2 != 0 {
		span.SetAttributes(attribute.Int("http.status_code", 500))
		span.SetStatus(codes.Error, fmt.Sprintf("request %d failed", i))
		log.Debug("request failed")
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", 200))
	span.SetStatus(codes.Ok, "")
	log.Debug("request succeeded")
}

func lookup(ctx context.Context, tracer trace.Tracer, i int) {
	_, span := tracer.Start(ctx, "users.lookup",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	defer span.End()

	span.AddEvent("cache miss", trace.WithAttributes(
		attribute.String("cache.key", fmt.Sprintf("users:%d", i)),
	))
	time.Sleep(time.Millisecond)
}
