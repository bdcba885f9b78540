// Package policy gates fork requests through an OPA rego policy, the same
// way tool invocations are gated elsewhere on the platform.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the admission policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine is the OPA admission engine for scenario patches.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates an engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.patch_policy.decision"),
		rego.Module("patch_policy.rego", policyContent),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate checks the patch admission policy. Input carries the patch fields
// plus parent metadata (parent_id, is_baseline, project_id).
// Returns: decision (allow, deny), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the default admission policy: forks may not rewrite
// protected scenario dimensions or explode the tick budget.
const DefaultPolicy = `
package patch_policy

default decision = "allow"

# A fork may not shrink the world to nothing.
decision = "deny" {
	input.patch.agent_count == 0
}

# Tick budgets above the platform ceiling are rejected.
decision = "deny" {
	input.patch.tick_limit > 10000000
}

# Negative event rate scales are meaningless.
decision = "deny" {
	input.patch.event_rate_scale < 0
}
`
