package auth

import (
	"testing"
	"time"
)

func testJWTer() *JWTer {
	return &JWTer{Secret: []byte("test-secret"), Issuer: "iam-test", TTL: time.Hour}
}

func TestIssueAndSubject(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	uid, err := j.Subject(tok)
	if err != nil {
		t.Fatalf("Subject() error = %v", err)
	}
	if uid != "user-1" {
		t.Errorf("Subject() = %q, want %q", uid, "user-1")
	}
}

func TestIssueIsUniquePerCall(t *testing.T) {
	j := testJWTer()
	a, _ := j.Issue("user-1")
	b, _ := j.Issue("user-1")
	if a == b {
		t.Fatal("two tokens issued back to back must differ")
	}
}

func TestParseRejects(t *testing.T) {
	j := testJWTer()
	tok, _ := j.Issue("user-1")

	other := &JWTer{Secret: []byte("other"), Issuer: "iam-test", TTL: time.Hour}
	if _, err := other.Parse(tok); err == nil {
		t.Error("Parse() with wrong secret should fail")
	}

	wrongIss := &JWTer{Secret: []byte("test-secret"), Issuer: "someone-else", TTL: time.Hour}
	if _, err := wrongIss.Parse(tok); err == nil {
		t.Error("Parse() with wrong issuer should fail")
	}

	expired := &JWTer{Secret: []byte("test-secret"), Issuer: "iam-test", TTL: -time.Hour}
	old, _ := expired.Issue("user-1")
	if _, err := j.Parse(old); err == nil {
		t.Error("Parse() of expired token should fail")
	}

	if _, err := j.Issue(""); err == nil {
		t.Error("Issue(\"\") should fail")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
