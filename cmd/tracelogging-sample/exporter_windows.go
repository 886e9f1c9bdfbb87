//go:build windows

package main

import (
	"fmt"

	winetw "github.com/Microsoft/go-winio/pkg/etw"
	"github.com/Microsoft/go-winio/pkg/guid"
	cli "github.com/urfave/cli/v2"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Microsoft/go-otel-tracelogging/exporters/etw"
)

func newPlatformExporter(c *cli.Context) (tracesdk.SpanExporter, error) {
	var popts []winetw.ProviderOpt
	if g := c.String(groupFlagName); g != "" {
		id, err := guid.FromString(g)
		if err != nil {
			return nil, fmt.Errorf("provider group: %w", err)
		}
		popts = append(popts, winetw.WithGroup(id))
	}
	return etw.New(
		etw.WithNewProvider(c.String(providerFlagName), popts...),
		etw.WithJSONPayload(c.Bool(payloadFlagName)),
		etw.WithActivityEvents(c.Bool(activityFlagName)),
	)
}
