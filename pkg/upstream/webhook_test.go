package upstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValidHMAC(t *testing.T) {
	secret := []byte("shh")
	body := []byte(`{"action":"create"}`)
	require.NoError(t, VerifySignature(body, sign(body, secret), secret))
}

func TestVerifySignatureRejectsMismatch(t *testing.T) {
	secret := []byte("shh")
	body := []byte(`{"action":"create"}`)
	err := VerifySignature(body, sign(body, []byte("other")), secret)
	assert.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestParseDeliveryNewAssignment(t *testing.T) {
	body := []byte(`{
		"action": "create",
		"type": "Issue",
		"updated_at": "2025-10-01T10:00:00Z",
		"data": {
			"id": "ENG-42",
			"title": "Fix login",
			"estimate": 2,
			"due_date": "2025-10-01T12:00:00Z",
			"state": {"type": "started"}
		}
	}`)
	d, err := ParseDelivery(body)
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, d.Action)
	assert.Equal(t, "ENG-42", d.Issue.ID)
	assert.Equal(t, "Fix login", d.Issue.Title)
	require.NotNil(t, d.Issue.Estimate)
	assert.Equal(t, 2.0, *d.Issue.Estimate)
	assert.Equal(t, "started", d.Issue.StateType)
}

func TestParseDeliveryRejectsMalformedBody(t *testing.T) {
	_, err := ParseDelivery([]byte(`{"action": "create"}`))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestParseDeliveryTerminalState(t *testing.T) {
	body := []byte(`{
		"action": "update",
		"type": "Issue",
		"data": {"id": "ENG-42", "state": {"type": "completed"}}
	}`)
	d, err := ParseDelivery(body)
	require.NoError(t, err)
	assert.True(t, IsTerminal(d.Issue.StateType))
}
