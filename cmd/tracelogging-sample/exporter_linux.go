//go:build linux

package main

import (
	cli "github.com/urfave/cli/v2"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Microsoft/go-otel-tracelogging/exporters/userevents"
	"github.com/Microsoft/go-otel-tracelogging/internal/eventheader"
)

func newPlatformExporter(c *cli.Context) (tracesdk.SpanExporter, error) {
	var popts []eventheader.ProviderOpt
	if g := c.String(groupFlagName); g != "" {
		popts = append(popts, eventheader.WithGroup(g))
	}
	return userevents.New(
		userevents.WithNewProvider(c.String(providerFlagName), popts...),
		userevents.WithJSONPayload(c.Bool(payloadFlagName)),
		userevents.WithActivityEvents(c.Bool(activityFlagName)),
	)
}
