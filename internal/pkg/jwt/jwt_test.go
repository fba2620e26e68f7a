package jwt

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	token, err := Sign("user-1", "session-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != "session-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Sign("user-1", "session-1", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse(token); err == nil {
		t.Fatal("expired token parsed")
	}
}

func TestParseRejectsTampered(t *testing.T) {
	token, err := Sign("user-1", "session-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tampered := token + "x"
	if _, err := Parse(tampered); err == nil {
		t.Fatal("tampered token parsed")
	}
	if _, err := Parse("not-a-token"); err == nil {
		t.Fatal("garbage parsed")
	}
}
