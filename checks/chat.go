package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AIChatCheck validates the AI chat endpoint end to end: an inventory
// question must come back with a non-empty answer that references something
// actually in the company's catalog, inside the API latency threshold.
type AIChatCheck struct{}

func (c *AIChatCheck) ID() string { return "ai_chat_response" }

func (c *AIChatCheck) Description() string {
	return "AI chat answers inventory questions with grounded, timely responses"
}

func (c *AIChatCheck) Run(ctx context.Context, env *Env) (map[string]any, error) {
	if env.API == nil {
		return nil, Skipf("no application URL configured")
	}

	companies, err := sampleCompanies(ctx, env)
	if err != nil {
		return nil, err
	}

	skus, err := tenantSKUs(ctx, env, companies[0].ID)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", companies[0].Name, err)
	}
	if len(skus) == 0 {
		return nil, Skipf("company %s has no catalog to ask about", companies[0].Name)
	}

	env.Log.WithField("company", companies[0].Name).Debug("asking chat about dead stock")
	reply, err := env.API.Post(ctx, "/api/chat", map[string]any{
		"message":         "Which products in my inventory are dead stock right now?",
		"conversation_id": uuid.New().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if failure, failed := reply.Failure(); failed {
		return nil, fmt.Errorf("chat request rejected: %s", failure)
	}

	obj, ok := reply.Object()
	if !ok {
		return nil, fmt.Errorf("chat returned a collection, expected a response object")
	}
	answer, _ := obj["response"].(string)
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("chat returned an empty response")
	}

	grounded := false
	for sku := range skus {
		if strings.Contains(answer, sku) {
			grounded = true
			break
		}
	}

	details := map[string]any{
		"latency_ms":      reply.Elapsed.Milliseconds(),
		"response_length": len(answer),
		"grounded":        grounded,
	}
	if reply.Elapsed > env.Thresholds.APIResponse {
		return details, fmt.Errorf("chat took %s, threshold %s", reply.Elapsed, env.Thresholds.APIResponse)
	}
	if !grounded {
		return details, fmt.Errorf("chat response does not reference any catalog SKU")
	}
	return details, nil
}
