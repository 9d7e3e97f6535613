package cloudhatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IulianH/CloudHatch-sub000/password"
)

func TestLoginSuccess(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice", testPasswordAlice)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens after login")
	}
	if pair.ExpiresIn <= 0 {
		t.Fatalf("ExpiresIn = %d, want positive", pair.ExpiresIn)
	}
	if pair.User.ID != "u1" {
		t.Fatalf("user id = %q, want u1", pair.User.ID)
	}
}

func TestLoginUsernameCaseInsensitive(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)

	if _, err := engine.Login(context.Background(), "ALICE", testPasswordAlice); err != nil {
		t.Fatalf("uppercase username login failed: %v", err)
	}
}

func TestLoginUnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)
	ctx := context.Background()

	_, errUnknown := engine.Login(ctx, "nobody", "whatever")
	_, errWrong := engine.Login(ctx, "alice", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatal("unknown-user and wrong-password errors must be identical")
	}
}

func TestLoginSoftLockAfterThreshold(t *testing.T) {
	cfg := testConfig()
	engine := newTestEngine(t, cfg, nil)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.SoftThreshold-1; i++ {
		_, err := engine.Login(ctx, "alice", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// threshold attempt trips the timed lock
	_, err := engine.Login(ctx, "alice", "wrong-password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("threshold attempt: got %v, want ErrAccountLocked", err)
	}

	// even the correct password is refused while locked
	_, err = engine.Login(ctx, "alice", testPasswordAlice)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("correct password while locked: got %v, want ErrAccountLocked", err)
	}
}

func TestLoginSoftLockExpires(t *testing.T) {
	cfg := testConfig()
	up := seedUsers(t)
	engine := newTestEngine(t, cfg, up)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.SoftThreshold; i++ {
		engine.Login(ctx, "alice", "wrong-password")
	}

	// rewind the lock expiry as if the duration elapsed
	u, err := up.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	u.LockedUntil = time.Now().UTC().Add(-time.Second)
	u.FailedLoginCount = 0
	if err := up.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if _, err := engine.Login(ctx, "alice", testPasswordAlice); err != nil {
		t.Fatalf("login after lock expiry failed: %v", err)
	}
}

func TestLoginHardLockAfterThreshold(t *testing.T) {
	cfg := testConfig()
	up := seedUsers(t)
	engine := newTestEngine(t, cfg, up)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.HardThreshold; i++ {
		// clear any timed lock so attempts keep reaching the verifier
		u, _ := up.GetUserByID(ctx, "u1")
		u.LockedUntil = time.Time{}
		_ = up.UpdateUser(ctx, u)

		engine.Login(ctx, "alice", "wrong-password")
	}

	u, err := up.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if !u.IsLocked {
		t.Fatal("expected IsLocked after hard threshold")
	}

	// hard lock has no expiry to rewind
	_, err = engine.Login(ctx, "alice", testPasswordAlice)
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}
}

func TestLoginCounterResetsOnSuccess(t *testing.T) {
	cfg := testConfig()
	up := seedUsers(t)
	engine := newTestEngine(t, cfg, up)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.SoftThreshold-1; i++ {
		engine.Login(ctx, "alice", "wrong-password")
	}

	if _, err := engine.Login(ctx, "alice", testPasswordAlice); err != nil {
		t.Fatalf("successful login failed: %v", err)
	}

	u, _ := up.GetUserByID(ctx, "u1")
	if u.FailedLoginCount != 0 {
		t.Fatalf("FailedLoginCount = %d, want 0 after success", u.FailedLoginCount)
	}
	if u.LastLogin.IsZero() {
		t.Fatal("expected LastLogin to be set")
	}

	// counter restarted, so N-1 more failures still do not lock
	for i := 0; i < cfg.Lockout.SoftThreshold-1; i++ {
		_, err := engine.Login(ctx, "alice", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}
}

func TestLoginOtherUsersUnaffectedByLock(t *testing.T) {
	cfg := testConfig()
	engine := newTestEngine(t, cfg, nil)
	ctx := context.Background()

	for i := 0; i < cfg.Lockout.SoftThreshold; i++ {
		engine.Login(ctx, "alice", "wrong-password")
	}

	if _, err := engine.Login(ctx, "bob", testPasswordBob); err != nil {
		t.Fatalf("bob login failed: %v", err)
	}
}

func TestLoginFederatedAccountRejectsPassword(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)

	_, err := engine.Login(context.Background(), "erika", "any-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginCorruptStoredHashIsServerError(t *testing.T) {
	up := seedUsers(t)
	up.AddUser(User{
		ID:             "u8",
		Username:       "casey",
		PasswordHash:   "not-a-valid-hash",
		Issuer:         IssuerLocal,
		EmailConfirmed: true,
	})
	engine := newTestEngine(t, testConfig(), up)

	_, err := engine.Login(context.Background(), "casey", "whatever")
	if !errors.Is(err, password.ErrHashFormat) {
		t.Fatalf("got %v, want ErrHashFormat", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("a corrupt stored hash must not read as bad credentials")
	}

	// server-side faults never advance the lockout counters
	u, _ := up.GetUserByID(context.Background(), "u8")
	if u.FailedLoginCount != 0 {
		t.Fatalf("FailedLoginCount = %d, want 0", u.FailedLoginCount)
	}
}

func TestLoginRequireConfirmedEmail(t *testing.T) {
	cfg := testConfig()
	cfg.Account.RequireConfirmedEmail = true

	up := seedUsers(t)
	up.AddUser(User{
		ID:           "u9",
		Username:     "newbie",
		PasswordHash: mustHash(t, "fresh-password-1"),
		Issuer:       IssuerLocal,
	})
	engine := newTestEngine(t, cfg, up)
	ctx := context.Background()

	_, err := engine.Login(ctx, "newbie", "fresh-password-1")
	if !errors.Is(err, ErrAccountUnverified) {
		t.Fatalf("got %v, want ErrAccountUnverified", err)
	}

	// confirmed accounts are unaffected
	if _, err := engine.Login(ctx, "alice", testPasswordAlice); err != nil {
		t.Fatalf("alice login failed: %v", err)
	}
}

func TestLoginFederatedSuccess(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)

	pair, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "google-sub-erika",
		Issuer:     "https://accounts.google.com",
		Email:      "erika@example.com",
	})
	if err != nil {
		t.Fatalf("federated login failed: %v", err)
	}
	if pair.User.ID != "u3" {
		t.Fatalf("user id = %q, want u3", pair.User.ID)
	}

	claims, err := engine.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if claims.IDP != "google" {
		t.Fatalf("idp claim = %q, want google", claims.IDP)
	}
}

func TestLoginFederatedUnknownClaim(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)

	_, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "no-such-subject",
		Issuer:     "https://accounts.google.com",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginFederatedRejectsLocalIssuer(t *testing.T) {
	engine := newTestEngine(t, testConfig(), nil)

	_, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "google-sub-erika",
		Issuer:     IssuerLocal,
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginFederatedRejectsTimedLock(t *testing.T) {
	up := seedUsers(t)
	u, _ := up.GetUserByID(context.Background(), "u3")
	u.LockedUntil = time.Now().UTC().Add(10 * time.Minute)
	u.FailedLoginCount = 3
	_ = up.UpdateUser(context.Background(), u)

	engine := newTestEngine(t, testConfig(), up)

	_, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "google-sub-erika",
		Issuer:     "https://accounts.google.com",
	})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}

	// the rejected attempt leaves the lock window in place
	u, _ = up.GetUserByID(context.Background(), "u3")
	if u.LockedUntil.IsZero() {
		t.Fatal("expected the timed lock to survive the federated attempt")
	}
}

func TestLoginFederatedClearsElapsedLockState(t *testing.T) {
	up := seedUsers(t)
	u, _ := up.GetUserByID(context.Background(), "u3")
	u.LockedUntil = time.Now().UTC().Add(-time.Second)
	u.FailedLoginCount = 2
	_ = up.UpdateUser(context.Background(), u)

	engine := newTestEngine(t, testConfig(), up)

	pair, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "google-sub-erika",
		Issuer:     "https://accounts.google.com",
	})
	if err != nil {
		t.Fatalf("federated login failed: %v", err)
	}
	if pair == nil {
		t.Fatal("expected a token pair")
	}

	u, _ = up.GetUserByID(context.Background(), "u3")
	if !u.LockedUntil.IsZero() || u.FailedLoginCount != 0 {
		t.Fatal("expected elapsed lock state cleared after federated login")
	}
}

func TestLoginFederatedRespectsHardLock(t *testing.T) {
	up := seedUsers(t)
	u, _ := up.GetUserByID(context.Background(), "u3")
	u.IsLocked = true
	_ = up.UpdateUser(context.Background(), u)

	engine := newTestEngine(t, testConfig(), up)

	_, err := engine.LoginFederated(context.Background(), FederatedClaim{
		ExternalID: "google-sub-erika",
		Issuer:     "https://accounts.google.com",
	})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}
}
