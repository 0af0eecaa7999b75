package jwt

import (
	"testing"
	"time"

	"peertrack/internal/domain/user"
)

const testSecret = "test-secret-key"

func TestIssueAndParseRoundTrip(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)

	token, claims, err := mgr.IssuePartyToken("party-1", user.RoleRequester)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.Subject != "party-1" || claims.Role != user.RoleRequester {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	_, parsed, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Subject != "party-1" || parsed.Role != user.RoleRequester {
		t.Fatalf("round trip lost claims: %+v", parsed)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager(testSecret, time.Hour).IssuePartyToken("party-1", user.RoleResponder)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := NewManager("other-secret", time.Hour).ParseAndValidate(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, _, err := NewManager(testSecret, -time.Minute).IssuePartyToken("party-1", user.RoleRequester)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := NewManager(testSecret, time.Hour).ParseAndValidate(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestIssueRejectsInvalidRole(t *testing.T) {
	if _, _, err := NewManager(testSecret, time.Hour).IssuePartyToken("party-1", user.Role("ADMIN")); err == nil {
		t.Fatalf("expected role error")
	}
}

func TestRoleAllowed(t *testing.T) {
	cl := NewPartyClaims("party-1", user.RoleResponder, time.Hour)
	if err := RoleAllowed(cl, user.RoleRequester, user.RoleResponder); err != nil {
		t.Fatalf("responder must be allowed: %v", err)
	}
	if err := RoleAllowed(cl, user.RoleRequester); err != ErrRoleForbidden {
		t.Fatalf("expected ErrRoleForbidden, got %v", err)
	}
}
