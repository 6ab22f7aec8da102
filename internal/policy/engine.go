// Package policy evaluates the relay origin policy with OPA.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog/log"
)

// Decisions returned by the origin policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine is the OPA policy engine.
type Engine struct {
	query   rego.PreparedEvalQuery
	allowed []string
}

// NewEngine creates a policy engine for the given policy content and origin
// allow-list.
func NewEngine(ctx context.Context, policyContent string, allowedOrigins []string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.relay_origin.decision"),
		rego.Module("relay_origin.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	allowed := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed = append(allowed, strings.ToLower(strings.TrimSuffix(o, "/")))
	}
	return &Engine{query: query, allowed: allowed}, nil
}

// Evaluate returns the decision for a connection from origin.
func (e *Engine) Evaluate(ctx context.Context, origin string) (string, error) {
	input := map[string]interface{}{
		"origin":          origin,
		"allowed_origins": e.allowed,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// AllowOrigin reports whether origin may open a relay connection.
// Evaluation errors deny.
func (e *Engine) AllowOrigin(ctx context.Context, origin string) bool {
	decision, err := e.Evaluate(ctx, origin)
	if err != nil {
		log.Error().Err(err).Str("origin", origin).Msg("origin policy evaluation failed")
		return false
	}
	return decision == DecisionAllow
}

// DefaultPolicy admits non-browser clients (no Origin header), any origin
// when the allow-list is empty, and listed origins otherwise.
const DefaultPolicy = `
package relay_origin

default decision = "deny"

decision = "allow" {
	input.origin == ""
}

decision = "allow" {
	count(input.allowed_origins) == 0
}

decision = "allow" {
	lower(input.origin) == input.allowed_origins[_]
}
`
