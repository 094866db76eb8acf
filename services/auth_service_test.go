package services

import (
	"context"
	"errors"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"testing"
	"time"

	"github.com/google/uuid"
)

func signup(t *testing.T, env *testEnv) {
	t.Helper()
	_, err := env.authService.Signup(context.Background(), &structs.SignupRequest{
		Email:    "Noor@Example.com",
		Password: "correct-horse",
		FullName: "Noor Haddad",
		Phone:    "+31 6 1234 5678",
	})
	if err != nil {
		t.Fatalf("Signup() error: %v", err)
	}
}

func TestSignupEncryptsPhoneAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.authService.Signup(ctx, &structs.SignupRequest{
		Email:    "noor@example.com",
		Password: "correct-horse",
		FullName: " Noor Haddad ",
		Phone:    "+31 6 1234 5678",
	})
	if err != nil {
		t.Fatalf("Signup() error: %v", err)
	}
	if user.PasswordHash != "" || user.Phone != "+31 6 1234 5678" || user.Role != structs.RoleCustomer || user.FullName != "Noor Haddad" {
		t.Fatalf("Signup() = %+v", user)
	}

	stored, _ := env.users.GetByID(ctx, user.Id)
	if stored.Phone == "+31 6 1234 5678" {
		t.Fatal("phone stored in plain text")
	}

	_, err = env.authService.Signup(ctx, &structs.SignupRequest{Email: "NOOR@example.com", Password: "another-pass", FullName: "Noor"})
	if !errors.Is(err, lib.ErrEmailTaken) {
		t.Fatalf("duplicate Signup() error = %v", err)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup(t, env)

	if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "wrong"}); !errors.Is(err, lib.ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v", err)
	}
	if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "ghost@example.com", Password: "x"}); !errors.Is(err, lib.ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v", err)
	}

	result, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if result.Access == "" || result.Refresh == "" || result.User.LastLogin == nil {
		t.Fatalf("Login() = %+v", result)
	}
	if result.User.Phone != "+31 6 1234 5678" {
		t.Fatalf("login user phone = %q", result.User.Phone)
	}

	claims, err := env.authService.Authenticate(ctx, result.Access)
	if err != nil || claims.Sub != result.User.Id || claims.Role != structs.RoleCustomer {
		t.Fatalf("Authenticate() = %+v, %v", claims, err)
	}
	if _, err := env.authService.Authenticate(ctx, result.Refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}

	// the cached copy keeps the phone encrypted but Me decrypts it
	cached, _ := env.cache.GetUser(ctx, result.User.Id)
	if cached == nil || cached.Phone == result.User.Phone || cached.PasswordHash != "" {
		t.Fatalf("cached user = %+v", cached)
	}
	me, err := env.authService.Me(ctx, result.User.Id)
	if err != nil || me.Phone != "+31 6 1234 5678" {
		t.Fatalf("Me() = %+v, %v", me, err)
	}
}

func TestLoginUnknownEmailStillHashes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for range 2 {
		if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "ghost@example.com", Password: "x"}); !errors.Is(err, lib.ErrInvalidCredentials) {
			t.Fatalf("unknown email error = %v", err)
		}
	}

	hash := env.authService.dummyHash
	if hash == "" {
		t.Fatal("unknown email skipped password verification")
	}
	if lib.PasswordNeedsRehash(hash, env.authService.argon) {
		t.Fatal("dummy hash must cost the same as a stored one")
	}
	if ok, err := lib.VerifyPassword("x", hash); err != nil || ok {
		t.Fatalf("dummy hash verify = %v, %v; want false, nil", ok, err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup(t, env)

	login, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}

	rotated, err := env.authService.Refresh(ctx, login.Refresh)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if rotated.Refresh == login.Refresh {
		t.Fatal("refresh token not rotated")
	}
	if _, err := env.authService.Refresh(ctx, login.Refresh); !errors.Is(err, lib.ErrInvalidToken) {
		t.Fatalf("reused refresh token error = %v", err)
	}
	if _, err := env.authService.Refresh(ctx, rotated.Refresh); err != nil {
		t.Fatalf("rotated refresh token rejected: %v", err)
	}
	if _, err := env.authService.Refresh(ctx, login.Access); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup(t, env)

	login, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := env.authService.Authenticate(ctx, login.Access)
	if err != nil {
		t.Fatal(err)
	}

	if err := env.authService.Logout(ctx, claims, login.Refresh); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := env.authService.Authenticate(ctx, login.Access); !errors.Is(err, lib.ErrInvalidToken) {
		t.Fatalf("access token after logout error = %v", err)
	}
	if _, err := env.authService.Refresh(ctx, login.Refresh); !errors.Is(err, lib.ErrInvalidToken) {
		t.Fatalf("refresh token after logout error = %v", err)
	}
}

func TestLogoutRejectsForeignRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup(t, env)

	login, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}

	someoneElse := &structs.AuthClaims{Sub: uuid.New(), Jti: uuid.New(), Exp: time.Now().Add(time.Minute)}
	if err := env.authService.Logout(ctx, someoneElse, login.Refresh); !errors.Is(err, lib.ErrForbidden) {
		t.Fatalf("Logout() with foreign refresh error = %v", err)
	}
	if err := env.authService.Logout(ctx, someoneElse, "garbage"); err != nil {
		t.Fatalf("Logout() with invalid refresh error = %v", err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.authService.BootstrapAdmin(ctx); err != nil {
		t.Fatalf("BootstrapAdmin() without config error: %v", err)
	}
	if len(env.users.users) != 0 {
		t.Fatal("admin created without config")
	}

	env.cfg.Auth.AdminEmail = "admin@perfumery.local"
	env.cfg.Auth.AdminPassword = "first-password"
	if err := env.authService.BootstrapAdmin(ctx); err != nil {
		t.Fatalf("BootstrapAdmin() error: %v", err)
	}
	login, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "admin@perfumery.local", Password: "first-password"})
	if err != nil || login.User.Role != structs.RoleAdmin {
		t.Fatalf("admin login = %+v, %v", login, err)
	}

	// a second run resets the password
	env.cfg.Auth.AdminPassword = "second-password"
	if err := env.authService.BootstrapAdmin(ctx); err != nil {
		t.Fatalf("BootstrapAdmin() rerun error: %v", err)
	}
	if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "admin@perfumery.local", Password: "first-password"}); !errors.Is(err, lib.ErrInvalidCredentials) {
		t.Fatalf("old admin password error = %v", err)
	}
	if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "admin@perfumery.local", Password: "second-password"}); err != nil {
		t.Fatalf("new admin password error = %v", err)
	}
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signup(t, env)

	upgraded := *env.authService.argon
	upgraded.Time = 2
	env.authService.argon = &upgraded

	login, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	stored, _ := env.users.GetByID(ctx, login.User.Id)
	if lib.PasswordNeedsRehash(stored.PasswordHash, &upgraded) {
		t.Fatal("stored hash not upgraded on login")
	}
	if _, err := env.authService.Login(ctx, &structs.LoginRequest{Email: "noor@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Login() with upgraded hash error: %v", err)
	}
}
