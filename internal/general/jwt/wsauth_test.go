package jwt

import (
	"fmt"
	"testing"
	"time"

	"peertrack/internal/domain/user"
)

func TestValidateWSAuth(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, err := mgr.IssuePartyToken("party-1", user.RoleRequester)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	frame := []byte(fmt.Sprintf(`{"type":"auth","token":"Bearer %s"}`, token))
	res, err := ValidateWSAuth(frame, mgr, user.RoleRequester, user.RoleResponder)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Claims.Subject != "party-1" {
		t.Fatalf("unexpected subject: %q", res.Claims.Subject)
	}
}

func TestValidateWSAuthRejectsBadFrames(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, err := mgr.IssuePartyToken("party-1", user.RoleRequester)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := ValidateWSAuth([]byte(`not json`), mgr, user.RoleRequester); err != ErrBadAuthMsg {
		t.Fatalf("expected ErrBadAuthMsg, got %v", err)
	}
	if _, err := ValidateWSAuth([]byte(`{"type":"hello","token":"Bearer x"}`), mgr, user.RoleRequester); err != ErrBadAuthMsg {
		t.Fatalf("expected ErrBadAuthMsg for wrong type, got %v", err)
	}
	frame := []byte(fmt.Sprintf(`{"type":"auth","token":"%s"}`, token))
	if _, err := ValidateWSAuth(frame, mgr, user.RoleRequester); err != ErrBadTokenWrap {
		t.Fatalf("expected ErrBadTokenWrap, got %v", err)
	}
}

func TestValidateWSAuthEnforcesRole(t *testing.T) {
	mgr := NewManager(testSecret, time.Hour)
	token, _, err := mgr.IssuePartyToken("party-1", user.RoleResponder)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	frame := []byte(fmt.Sprintf(`{"type":"auth","token":"Bearer %s"}`, token))
	if _, err := ValidateWSAuth(frame, mgr, user.RoleRequester); err != ErrRoleForbidden {
		t.Fatalf("expected ErrRoleForbidden, got %v", err)
	}
}
