package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bindJSON(t *testing.T, body string, out any) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(out)
}

// Zero is a legitimate wire value for the numeric fields; the services
// decide what an amount of 0 means, not the binder.
func TestBinding_ZeroValuesReachTheService(t *testing.T) {
	var claim ClaimRequest
	if err := bindJSON(t, `{"amount":0,"gas_strategy":"NATIVE","signature":"sig"}`, &claim); err != nil {
		t.Fatalf("amount 0 rejected at the binder: %v", err)
	}

	var session StartSessionRequest
	if err := bindJSON(t, `{"quest_id":0}`, &session); err != nil {
		t.Fatalf("quest_id 0 rejected at the binder: %v", err)
	}

	var cancel CancelClaimRequest
	if err := bindJSON(t, `{"claim_id":0}`, &cancel); err != nil {
		t.Fatalf("claim_id 0 rejected at the binder: %v", err)
	}
}

func TestBinding_MissingStringsStillRejected(t *testing.T) {
	var claim ClaimRequest
	if err := bindJSON(t, `{"amount":500}`, &claim); err == nil {
		t.Fatalf("claim without gas_strategy and signature should not bind")
	}

	var score SubmitScoreRequest
	if err := bindJSON(t, `{"score":100}`, &score); err == nil {
		t.Fatalf("submission without session_id and signature should not bind")
	}
}
