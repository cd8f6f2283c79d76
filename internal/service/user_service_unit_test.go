//go:build unit

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-blog-app/internal/auth"
)

func newUserFixture(t *testing.T) (*memStore, *UserService) {
	t.Helper()
	store := newMemStore()
	svc := NewUserService(memUsers{store})
	svc.now = fixedClock
	return store, svc
}

func TestUserService_Register(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{
		Username:  "alice",
		FirstName: "Alice",
		Email:     "alice@example.com",
		Password1: "correct horse",
		Password2: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 || user.PasswordHash == "" || user.PasswordHash == "correct horse" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := auth.CheckPassword(store.users[user.ID].PasswordHash, "correct horse"); err != nil {
		t.Errorf("stored hash does not match: %v", err)
	}

	testCases := []struct {
		name  string
		in    Registration
		field string
	}{
		{"taken", Registration{Username: "alice", Password1: "password1", Password2: "password1"}, "username"},
		{"reserved", Registration{Username: "admin", Password1: "password1", Password2: "password1"}, "username"},
		{"bad characters", Registration{Username: "a b", Password1: "password1", Password2: "password1"}, "username"},
		{"too long", Registration{Username: strings.Repeat("a", 151), Password1: "password1", Password2: "password1"}, "username"},
		{"short password", Registration{Username: "bob", Password1: "short", Password2: "short"}, "password2"},
		{"mismatch", Registration{Username: "bob", Password1: "password1", Password2: "password2"}, "password2"},
		{"bad email", Registration{Username: "bob", Email: "nope", Password1: "password1", Password2: "password1"}, "email"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := ve.Fields[tc.field]; !ok {
				t.Errorf("expected error on %s, got %v", tc.field, ve.Fields)
			}
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, Registration{Username: "alice", Password1: "password1", Password2: "password1"}); err != nil {
		t.Fatal(err)
	}
	external := store.addUser("oidc-user")

	if _, err := svc.Authenticate(ctx, "alice", "password1"); err != nil {
		t.Errorf("expected successful login, got %v", err)
	}
	for _, tc := range [][2]string{{"alice", "wrong"}, {"nobody", "password1"}, {external.Username, ""}} {
		if _, err := svc.Authenticate(ctx, tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%v: expected ErrInvalidCredentials, got %v", tc, err)
		}
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	updated, err := svc.UpdateProfile(ctx, principalOf(alice), "alice", ProfileInput{FirstName: "Alice", LastName: "Liddell", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.FullName() != "Alice Liddell" || store.users[alice.ID].Email != "a@example.com" {
		t.Errorf("profile not saved: %+v", store.users[alice.ID])
	}

	before := store.writes
	if _, err := svc.UpdateProfile(ctx, principalOf(bob), "alice", ProfileInput{FirstName: "Mallory"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if store.writes != before || store.users[alice.ID].FirstName != "Alice" {
		t.Error("another user changed the profile")
	}
	if _, err := svc.UpdateProfile(ctx, principalOf(bob), "ghost", ProfileInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, Registration{Username: "alice", Password1: "password1", Password2: "password1"})
	if err != nil {
		t.Fatal(err)
	}
	me := principalOf(alice)

	err = svc.ChangePassword(ctx, me, "alice", PasswordChange{OldPassword: "wrong", NewPassword1: "newpassword", NewPassword2: "newpassword"})
	if ve, ok := AsValidation(err); !ok || ve.Fields["old_password"] == "" {
		t.Errorf("expected old_password error, got %v", err)
	}
	err = svc.ChangePassword(ctx, me, "alice", PasswordChange{OldPassword: "password1", NewPassword1: "newpassword", NewPassword2: "different"})
	if ve, ok := AsValidation(err); !ok || ve.Fields["new_password2"] == "" {
		t.Errorf("expected new_password2 error, got %v", err)
	}
	other := store.addUser("bob")
	if err := svc.ChangePassword(ctx, principalOf(other), "alice", PasswordChange{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if err := svc.ChangePassword(ctx, me, "alice", PasswordChange{OldPassword: "password1", NewPassword1: "newpassword", NewPassword2: "newpassword"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice", "newpassword"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUserService_FindOrCreateExternal(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()
	jane := ExternalIdentity{
		Issuer: "https://id.example.com", Subject: "sub-jane",
		Email: "jane.doe@example.com", FirstName: "Jane", LastName: "Doe",
	}

	user, err := svc.FindOrCreateExternal(ctx, jane)
	if err != nil {
		t.Fatalf("FindOrCreateExternal failed: %v", err)
	}
	if user.Username != "jane.doe@example.com" || user.PasswordHash != "" {
		t.Errorf("unexpected external user: %+v", user)
	}
	if user.ExternalID == nil || *user.ExternalID != "https://id.example.com|sub-jane" {
		t.Errorf("expected the identity key to be stored, got %v", user.ExternalID)
	}

	jane.Email = "renamed@example.com"
	again, err := svc.FindOrCreateExternal(ctx, jane)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != user.ID || len(store.users) != 1 {
		t.Error("expected the existing account to be reused for the same subject")
	}

	if _, err := svc.FindOrCreateExternal(ctx, ExternalIdentity{Issuer: "https://id.example.com", PreferredUsername: "bob"}); err == nil {
		t.Error("expected an identity without subject to be rejected")
	}
}

func TestUserService_FindOrCreateExternal_NeverBindsExistingAccount(t *testing.T) {
	store, svc := newUserFixture(t)
	ctx := context.Background()

	alice, err := svc.Register(ctx, Registration{
		Username: "alice", Email: "alice@example.com", Password1: "password1", Password2: "password1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	mallory := ExternalIdentity{Issuer: "https://id.example.com", Subject: "sub-mallory", PreferredUsername: "alice"}
	user, err := svc.FindOrCreateExternal(ctx, mallory)
	if err != nil {
		t.Fatalf("FindOrCreateExternal failed: %v", err)
	}
	if user.ID == alice.ID {
		t.Fatal("external login was bound to the password account")
	}
	if user.Username != "alice-2" {
		t.Errorf("want derived username alice-2; got %q", user.Username)
	}
	if store.users[alice.ID].ExternalID != nil {
		t.Error("password account must keep no external identity")
	}

	other := ExternalIdentity{Issuer: "https://id.example.com", Subject: "sub-other", PreferredUsername: "alice"}
	second, err := svc.FindOrCreateExternal(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == user.ID || second.Username != "alice-3" {
		t.Errorf("a second subject must get its own account; got %+v", second)
	}

	again, err := svc.FindOrCreateExternal(ctx, mallory)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != user.ID {
		t.Error("expected the same subject to reach the same account")
	}
}

func TestUserService_FindOrCreateExternal_ReservedName(t *testing.T) {
	_, svc := newUserFixture(t)

	user, err := svc.FindOrCreateExternal(context.Background(), ExternalIdentity{Subject: "s1", PreferredUsername: "author"})
	if err != nil {
		t.Fatalf("FindOrCreateExternal failed: %v", err)
	}
	if user.Username != "author-2" {
		t.Errorf("want reserved name replaced by author-2; got %q", user.Username)
	}

	user, err = svc.FindOrCreateExternal(context.Background(), ExternalIdentity{Subject: "s2", PreferredUsername: "!!!"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Username != "user" {
		t.Errorf("want fallback username; got %q", user.Username)
	}
}

func TestUserService_HeldUsernames(t *testing.T) {
	_, svc := newUserFixture(t)
	ctx := context.Background()
	svc.HoldUsernames([]string{"root"})

	_, err := svc.Register(ctx, Registration{Username: "root", Password1: "password1", Password2: "password1"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["username"] == "" {
		t.Fatalf("expected a username error for a held name, got %v", err)
	}

	user, err := svc.FindOrCreateExternal(ctx, ExternalIdentity{Subject: "sub-root", PreferredUsername: "root"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Username == "root" {
		t.Error("external login must not claim a held name")
	}
}

func TestUserService_FieldLengths(t *testing.T) {
	_, svc := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{
		Username:  "alice",
		FirstName: strings.Repeat("a", 151),
		Email:     strings.Repeat("a", 250) + "@x.io",
		Password1: "password1",
		Password2: "password1",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if verr.Fields["first_name"] == "" || verr.Fields["email"] != "Ensure this value has at most 254 characters." {
		t.Errorf("unexpected field errors: %v", verr.Fields)
	}

	user, err := svc.Register(ctx, Registration{
		Username: "alice", FirstName: strings.Repeat("a", 150), Password1: "password1", Password2: "password1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err = svc.UpdateProfile(ctx, principalOf(user), "alice", ProfileInput{LastName: strings.Repeat("b", 151)})
	if !errors.As(err, &verr) || verr.Fields["last_name"] == "" {
		t.Errorf("expected a last_name error, got %v", err)
	}
}
