package checks

import (
	"context"
	"fmt"
	"time"
)

// APIResponseTimeCheck probes a handful of core API routes and fails when
// any of them exceeds the configured response-time threshold.
type APIResponseTimeCheck struct{}

func (c *APIResponseTimeCheck) ID() string { return "api_response_time" }

func (c *APIResponseTimeCheck) Description() string {
	return "core API routes respond within the configured threshold"
}

var probedRoutes = []string{
	"/dashboard",
	"/inventory",
	"/customers",
	"/orders",
}

func (c *APIResponseTimeCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	if env.API == nil {
		return nil, Skipf("no application URL configured")
	}

	latencies := make(map[string]any, len(probedRoutes))
	var slowest string
	var worst time.Duration

	for _, route := range probedRoutes {
		resp, err := env.API.Get(ctx, route, nil)
		if err != nil {
			return nil, fmt.Errorf("probe %s failed: %w", route, err)
		}
		if failure, failed := resp.Failure(); failed {
			return nil, fmt.Errorf("probe %s rejected: %s", route, failure)
		}

		latencies[route] = resp.Elapsed.Milliseconds()
		if resp.Elapsed > worst {
			worst = resp.Elapsed
			slowest = route
		}
	}

	details := map[string]any{
		"latencies_ms": latencies,
		"slowest":      slowest,
	}
	if worst > env.Thresholds.APIResponse {
		return details, fmt.Errorf("%s took %s, threshold %s", slowest, worst, env.Thresholds.APIResponse)
	}
	return details, nil
}
