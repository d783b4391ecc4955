package upstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// webhookSchema is validated against every inbound delivery before
// structural decoding. It is a hand-written literal mirroring the
// Action/Delivery shape below (spec §6 "Webhook event"), checked with
// github.com/xeipuuv/gojsonschema. Malformed bodies become a §7 kind-3
// Validation error before they ever reach the engine.
const webhookSchema = `{
  "type": "object",
  "required": ["action", "type", "data"],
  "properties": {
    "action": {"type": "string", "enum": ["create", "update", "delete"]},
    "type": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string"}
      }
    },
    "updated_at": {"type": "string"}
  }
}`

var webhookSchemaLoader = gojsonschema.NewStringLoader(webhookSchema)

// Action is the webhook delivery's top-level verb (spec §6).
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Delivery is a parsed, validated, authenticated webhook payload.
type Delivery struct {
	Action    Action
	Type      string
	Issue     Issue
	EngineTag string // echo-suppression marker read from data.engine_marker, if present (design note 1)
}

// ValidationError wraps a webhook body that failed schema validation or
// whose updated_at could not be parsed — a §7 kind-3 Validation error.
// A signature mismatch is reported as AuthError instead.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "webhook validation: " + e.Reason }

// AuthError is returned on signature mismatch — the HTTP-layer caller
// (out of scope) is expected to respond 401.
type AuthError struct{}

func (e *AuthError) Error() string { return "webhook signature mismatch" }

// VerifySignature checks the HMAC-SHA256 signature of body against
// secret using the conventional hex-encoded `sha256=<hex>` header value.
// Stdlib crypto/hmac is used directly: no ecosystem library improves on
// constant-time HMAC comparison for this.
func VerifySignature(body []byte, signatureHeader string, secret []byte) error {
	const prefix = "sha256="
	sig := signatureHeader
	if len(sig) > len(prefix) && sig[:len(prefix)] == prefix {
		sig = sig[len(prefix):]
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return &AuthError{}
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	got := mac.Sum(nil)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return &AuthError{}
	}
	return nil
}

// ParseDelivery validates body against webhookSchema, then reads each
// Delivery field with gjson (including the dynamic/optional
// data.state.type used by spec §4.4's "terminal workflow state" check)
// rather than decoding into a struct, so a schema drift in a field we
// don't model doesn't block reading the fields we do.
func ParseDelivery(body []byte) (*Delivery, error) {
	result, err := gojsonschema.Validate(webhookSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("schema check failed: %v", err)}
	}
	if !result.Valid() {
		return nil, &ValidationError{Reason: result.Errors()[0].String()}
	}

	root := gjson.ParseBytes(body)

	updatedAt := time.Now().UTC()
	if ts := root.Get("updated_at"); ts.Exists() && ts.String() != "" {
		parsed, err := time.Parse(time.RFC3339, ts.String())
		if err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("updated_at: %v", err)}
		}
		updatedAt = parsed.UTC()
	}

	issue := Issue{
		ID:          root.Get("data.id").String(),
		Title:       root.Get("data.title").String(),
		Description: root.Get("data.description").String(),
		StateType:   root.Get("data.state.type").String(),
		AssigneeRef: root.Get("data.assignee.id").String(),
		UpdatedAt:   updatedAt,
	}
	if est := root.Get("data.estimate"); est.Exists() {
		v := est.Float()
		issue.Estimate = &v
	}
	if due := root.Get("data.due_date"); due.Exists() && due.String() != "" {
		if t, err := time.Parse(time.RFC3339, due.String()); err == nil {
			tu := t.UTC()
			issue.DueDate = &tu
		}
	}
	for _, l := range root.Get("data.labels").Array() {
		issue.Labels = append(issue.Labels, l.String())
	}

	return &Delivery{
		Action:    Action(root.Get("action").String()),
		Type:      root.Get("type").String(),
		Issue:     issue,
		EngineTag: root.Get("data.engine_marker").String(),
	}, nil
}
