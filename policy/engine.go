package policy

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// DeniedError lists why a webhook URL was refused.
type DeniedError struct {
	URL     string
	Reasons []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("webhook url %s denied: %s", e.URL, strings.Join(e.Reasons, "; "))
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.webhook_policy.deny as a set of messages.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.webhook_policy.deny"),
		rego.Module("webhook_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// EvaluateWebhookURL returns a *DeniedError when the policy rejects raw.
func (e *Engine) EvaluateWebhookURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &DeniedError{URL: raw, Reasons: []string{"url is not parseable"}}
	}
	input := map[string]interface{}{
		"url":    raw,
		"scheme": strings.ToLower(u.Scheme),
		"host":   strings.ToLower(u.Hostname()),
		"port":   u.Port(),
		"path":   u.Path,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil
	}

	set, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(set) == 0 {
		return nil
	}
	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return &DeniedError{URL: raw, Reasons: reasons}
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package webhook_policy

allowed_schemes := {"http", "https"}

blocked_hosts := {
	"169.254.169.254",
	"metadata.google.internal",
	"metadata",
}

deny[msg] {
	not allowed_schemes[input.scheme]
	msg := sprintf("scheme %q is not allowed", [input.scheme])
}

deny[msg] {
	input.host == ""
	msg := "host is required"
}

deny[msg] {
	blocked_hosts[input.host]
	msg := sprintf("host %q is blocked", [input.host])
}

deny[msg] {
	startswith(input.host, "169.254.")
	not blocked_hosts[input.host]
	msg := sprintf("link-local host %q is blocked", [input.host])
}
`
