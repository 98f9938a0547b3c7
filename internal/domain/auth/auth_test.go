package auth

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("1207")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "1207"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{
		UserID:   7,
		Username: "ana",
		Roles:    []string{RoleEmployee, RoleSecretariat},
	}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != RoleSecretariat {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: 1}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: 1}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestActorRoles(t *testing.T) {
	actor := Actor{ID: 1, Roles: []string{RoleEmployee, RoleUnitHead}}
	if !actor.HasRole(RoleUnitHead) {
		t.Fatal("expected RoleUnitHead")
	}
	if actor.HasRole(RoleDirector) {
		t.Fatal("did not expect RoleDirector")
	}
	if !actor.HasAnyRole(RoleDirector, RoleEmployee) {
		t.Fatal("expected any-role match")
	}
	if actor.HasAnyRole(RoleDirector, RoleAdministrator) {
		t.Fatal("unexpected any-role match")
	}
}
