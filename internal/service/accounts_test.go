package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/models"
)

func newAccountFixture() (*AccountService, *memoryUsers, *memoryImages) {
	users := newMemoryUsers()
	images := newMemoryImages()
	return NewAccountService(users, images, MockTokens{}), users, images
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAccountFixture()
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Username: "asha", Email: "Asha@Example.com", Password: "secret123", Age: 34})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Email != "asha@example.com" {
		t.Errorf("email = %q, want lower-cased", session.User.Email)
	}
	if session.User.PasswordHash == "secret123" || session.User.PasswordHash == "" {
		t.Errorf("password not hashed")
	}
	if session.Token != "token-"+session.User.ID {
		t.Errorf("token = %q", session.Token)
	}

	if _, err := svc.Register(ctx, RegisterInput{Username: "asha2", Email: "asha@example.com", Password: "secret123"}); !errors.Is(err, models.ErrDuplicateKey) {
		t.Errorf("duplicate register err = %v", err)
	}

	login, err := svc.Login(ctx, "asha@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Errorf("login user = %s, want %s", login.User.ID, session.User.ID)
	}
	if _, err := svc.Login(ctx, "asha@example.com", "wrong-pass"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAccountFixture()
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.co", Password: "secret123"}},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", Password: "secret123"}},
		{"short password", RegisterInput{Username: "a", Email: "a@b.co", Password: "123"}},
		{"negative age", RegisterInput{Username: "a", Email: "a@b.co", Password: "secret123", Age: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.in); !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCurrentIncludesImages(t *testing.T) {
	svc, _, images := newAccountFixture()
	ctx := context.Background()
	session, err := svc.Register(ctx, RegisterInput{Username: "ravi", Email: "ravi@example.com", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}
	images.users[session.User.ID] = true
	if _, err := images.AppendImage(ctx, session.User.ID, "file_1", "https://cdn/1.png"); err != nil {
		t.Fatal(err)
	}

	user, err := svc.Current(ctx, session.User.ID)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(user.Images) != 1 || user.Images[0].FileID != "file_1" {
		t.Errorf("images = %+v", user.Images)
	}
	if _, err := svc.Current(ctx, "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _ := newAccountFixture()
	ctx := context.Background()
	session, err := svc.Register(ctx, RegisterInput{Username: "meera", Email: "meera@example.com", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}
	id := session.User.ID

	updated, err := svc.Update(ctx, id, UpdateInput{Username: "meera_k", Password: "newsecret"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Username != "meera_k" || updated.Email != "meera@example.com" {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := svc.Login(ctx, "meera@example.com", "newsecret"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := svc.Update(ctx, id, UpdateInput{Email: "bad"}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("bad email err = %v", err)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestGoogleSignIn(t *testing.T) {
	svc, users, _ := newAccountFixture()
	ctx := context.Background()

	existing, err := svc.Register(ctx, RegisterInput{Username: "dev", Email: "dev@example.com", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}

	linked, err := svc.GoogleSignIn(ctx, &auth.GoogleIdentity{Sub: "g-100", Email: "Dev@example.com", EmailVerified: true, Name: "Dev Patel"})
	if err != nil {
		t.Fatalf("GoogleSignIn link: %v", err)
	}
	if linked.User.ID != existing.User.ID {
		t.Errorf("linked user = %s, want %s", linked.User.ID, existing.User.ID)
	}
	stored, _ := users.GetByID(ctx, existing.User.ID)
	if stored.GoogleSub == nil || *stored.GoogleSub != "g-100" {
		t.Errorf("google sub not linked: %+v", stored.GoogleSub)
	}

	again, err := svc.GoogleSignIn(ctx, &auth.GoogleIdentity{Sub: "g-100", Email: "changed@example.com"})
	if err != nil || again.User.ID != existing.User.ID {
		t.Fatalf("GoogleSignIn by sub = %+v, %v", again, err)
	}

	created, err := svc.GoogleSignIn(ctx, &auth.GoogleIdentity{Sub: "g-200200", Email: "new@example.com", Name: "New Person"})
	if err != nil {
		t.Fatalf("GoogleSignIn create: %v", err)
	}
	if created.User.Username != "newperson_200200" {
		t.Errorf("username = %q", created.User.Username)
	}
	if _, err := svc.Login(ctx, "new@example.com", "anything"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("password login for google account err = %v", err)
	}
}

func TestGoogleSignInUnverifiedEmailDoesNotLink(t *testing.T) {
	svc, users, _ := newAccountFixture()
	ctx := context.Background()

	victim, err := svc.Register(ctx, RegisterInput{Username: "victim", Email: "victim@example.com", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}

	session, err := svc.GoogleSignIn(ctx, &auth.GoogleIdentity{Sub: "g-999", Email: "victim@example.com"})
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if session != nil {
		t.Fatalf("session issued for %s", session.User.ID)
	}
	stored, _ := users.GetByID(ctx, victim.User.ID)
	if stored.GoogleSub != nil {
		t.Errorf("google sub linked: %s", *stored.GoogleSub)
	}
	if _, err := users.GetByGoogleSub(ctx, "g-999"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetByGoogleSub err = %v, want ErrNotFound", err)
	}

	created, err := svc.GoogleSignIn(ctx, &auth.GoogleIdentity{Sub: "g-300300", Email: "fresh@example.com", Name: "Fresh"})
	if err != nil {
		t.Fatalf("unverified new account: %v", err)
	}
	if created.User.ID == victim.User.ID {
		t.Error("new account reused existing user")
	}
}
