package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidateToken(t *testing.T) {
	token, err := IssueToken("test-secret", time.Hour, "user-1", "tenant-1", "a@b.co")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.TenantID != "tenant-1" || claims.Email != "a@b.co" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _ := IssueToken("test-secret", time.Hour, "user-1", "tenant-1", "a@b.co")
	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("expected validation failure with wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	token, _ := IssueToken("test-secret", -time.Minute, "user-1", "tenant-1", "a@b.co")
	if _, err := ValidateToken(token, "test-secret"); err == nil {
		t.Error("expected validation failure for expired token")
	}
}
