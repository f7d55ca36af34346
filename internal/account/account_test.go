package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/testutil"
	"github.com/iliyamo/worktime-ledger/internal/utils"
)

type sentMail struct{ to, subject, body string }

type recordingSink struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingSink) Send(to, subject, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{to, subject, body})
}

func (s *recordingSink) last(t *testing.T) sentMail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return s.sent[len(s.sent)-1]
}

// linkParts returns the encoded id and token from the link in body.
func linkParts(t *testing.T, body, action string) (string, string) {
	t.Helper()
	marker := "/v1/auth/" + action + "/"
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no %s link in %q", action, body)
	}
	rest := strings.Fields(body[i+len(marker):])[0]
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		t.Fatalf("malformed link tail %q", rest)
	}
	return parts[0], parts[1]
}

type fixture struct {
	lc    *Lifecycle
	users *repository.UserRepo
	perms *repository.PermissionRepo
	sink  *recordingSink
}

func newFixture(t *testing.T) fixture {
	db := testutil.NewDB(t)
	f := fixture{
		users: repository.NewUserRepo(db),
		perms: repository.NewPermissionRepo(db),
		sink:  &recordingSink{},
	}
	f.lc = &Lifecycle{
		Users:       f.users,
		Permissions: f.perms,
		Sessions:    repository.NewTokenRepo(db),
		Tokens:      NewTokenService("test-secret", time.Hour),
		Sink:        f.sink,
		BaseURL:     "http://localhost:8080/",
		BcryptCost:  bcrypt.MinCost,
	}
	return f
}

func TestRegisterCreatesInactiveUserAndMailsLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.lc.Register(ctx, "  New.User@Example.COM ", "s3cret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "new.user@example.com" || u.IsActive {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "s3cret-pass" || !utils.VerifyPassword(u.PasswordHash, "s3cret-pass") {
		t.Fatal("password must be stored hashed")
	}
	m := f.sink.last(t)
	if m.to != u.Email {
		t.Fatalf("mail sent to %q", m.to)
	}
	if !strings.Contains(m.body, "http://localhost:8080/v1/auth/activate/"+EncodeID(u.ID)+"/") {
		t.Fatalf("activation link missing: %q", m.body)
	}

	if _, err := f.lc.Register(ctx, "NEW.user@example.com", "another-pass"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.lc.Register(ctx, "not-an-email", "long-enough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := f.lc.Register(ctx, "a@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestActivateGrantsCustomerAndTokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.lc.Register(ctx, "act@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}
	uid, token := linkParts(t, f.sink.last(t).body, "activate")

	if err := f.lc.Activate(ctx, uid, token); err != nil {
		t.Fatalf("activate: %v", err)
	}
	got, _ := f.users.GetByID(ctx, u.ID)
	if !got.IsActive {
		t.Fatal("user should be active")
	}
	tags, _ := f.perms.TagsForUser(ctx, u.ID)
	if len(tags) != 1 || tags[0] != model.PermissionCustomer {
		t.Fatalf("expected [customer], got %v", tags)
	}

	if err := f.lc.Activate(ctx, uid, token); !errors.Is(err, ErrActivationFailed) {
		t.Fatalf("reused token: expected ErrActivationFailed, got %v", err)
	}
}

func TestActivateFailuresCollapseAndDoNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.lc.Register(ctx, "tamper@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}
	uid, token := linkParts(t, f.sink.last(t).body, "activate")
	flip := "0"
	if strings.HasSuffix(token, "0") {
		flip = "1"
	}
	tampered := token[:len(token)-1] + flip

	cases := []struct {
		name, uid, token string
	}{
		{"tampered token", uid, tampered},
		{"garbage token", uid, "nope"},
		{"undecodable id", "%%%", token},
		{"unknown user", EncodeID("00000000-0000-0000-0000-000000000000"), token},
		{"reset token used for activation", uid, f.lc.Tokens.Issue(PurposePasswordReset, mustUser(t, f, u.ID))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.lc.Activate(ctx, tc.uid, tc.token); !errors.Is(err, ErrActivationFailed) {
				t.Fatalf("expected ErrActivationFailed, got %v", err)
			}
			if mustUser(t, f, u.ID).IsActive {
				t.Fatal("is_active must not change")
			}
		})
	}
}

func mustUser(t *testing.T, f fixture, id string) model.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u
}

func TestConcurrentActivationGrantsCustomerOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.lc.Register(ctx, "race@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}
	uid, token := linkParts(t, f.sink.last(t).body, "activate")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.lc.Activate(ctx, uid, token)
		}()
	}
	wg.Wait()
	close(errs)
	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrActivationFailed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatal("at least one activation must succeed")
	}
	all, _ := f.perms.List(ctx)
	if len(all) != 1 || all[0].Name != model.PermissionCustomer {
		t.Fatalf("expected one customer tag, got %v", all)
	}
	tags, _ := f.perms.TagsForUser(ctx, u.ID)
	if len(tags) != 1 {
		t.Fatalf("expected one link, got %v", tags)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.lc.Register(ctx, "reset@example.com", "password1")
	if err != nil {
		t.Fatal(err)
	}

	// inactive accounts are indistinguishable from unknown ones
	sentBefore := len(f.sink.sent)
	if err := f.lc.RequestPasswordReset(ctx, "reset@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive: expected ErrNotFound, got %v", err)
	}
	if err := f.lc.RequestPasswordReset(ctx, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown: expected ErrNotFound, got %v", err)
	}
	if err := f.lc.RequestPasswordReset(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty: expected ErrNotFound, got %v", err)
	}
	if len(f.sink.sent) != sentBefore {
		t.Fatal("failed requests must not send mail")
	}

	if err := f.users.Activate(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.lc.RequestPasswordReset(ctx, "RESET@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	uid, token := linkParts(t, f.sink.last(t).body, "password-reset")

	if err := f.lc.SubmitPasswordReset(ctx, uid, token, ""); !errors.Is(err, ErrResetFailed) {
		t.Fatalf("missing password: expected ErrResetFailed, got %v", err)
	}
	if err := f.lc.SubmitPasswordReset(ctx, uid, token+"00", "brand-new-pass"); !errors.Is(err, ErrResetFailed) {
		t.Fatalf("bad token: expected ErrResetFailed, got %v", err)
	}
	if err := f.lc.SubmitPasswordReset(ctx, uid, token, "brand-new-pass"); err != nil {
		t.Fatalf("submit reset: %v", err)
	}
	if !utils.VerifyPassword(mustUser(t, f, u.ID).PasswordHash, "brand-new-pass") {
		t.Fatal("password not updated")
	}
	if err := f.lc.SubmitPasswordReset(ctx, uid, token, "another-pass"); !errors.Is(err, ErrResetFailed) {
		t.Fatalf("token must die with the old password, got %v", err)
	}
}

func TestTokenServiceExpiryAndState(t *testing.T) {
	s := NewTokenService("k", time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	u := model.User{ID: "u1", Email: "a@example.com", PasswordHash: "h1"}

	tok := s.Issue(PurposeActivation, u)
	if !s.Verify(PurposeActivation, u, tok) {
		t.Fatal("fresh token should verify")
	}
	if s.Verify(PurposePasswordReset, u, tok) {
		t.Fatal("purpose must be bound")
	}
	login := now
	changed := u
	changed.LastLoginAt = &login
	if s.Verify(PurposeActivation, changed, tok) {
		t.Fatal("login must invalidate the token")
	}
	if NewTokenService("other", time.Minute).Verify(PurposeActivation, u, tok) {
		t.Fatal("secret must be bound")
	}
	now = now.Add(2 * time.Minute)
	if s.Verify(PurposeActivation, u, tok) {
		t.Fatal("expired token must not verify")
	}
}

func TestEncodeDecodeID(t *testing.T) {
	id := "3f1c2a9e-8f7b-4c1d-9a2e-5b6c7d8e9f00"
	got, err := DecodeID(EncodeID(id))
	if err != nil || got != id {
		t.Fatalf("round trip: %q %v", got, err)
	}
	if _, err := DecodeID("!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

// flakyGranter fails its first call and forwards afterwards.
type flakyGranter struct {
	next   PermissionGranter
	failed bool
}

func (g *flakyGranter) Grant(ctx context.Context, userID string, p model.Permission) error {
	if !g.failed {
		g.failed = true
		return errors.New("transient db error")
	}
	return g.next.Grant(ctx, userID, p)
}

func TestActivateRetriesAfterFailedGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lc.Permissions = &flakyGranter{next: f.perms}

	u, err := f.lc.Register(ctx, "retry@example.com", "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	uid, token := linkParts(t, f.sink.last(t).body, "activate")

	if err := f.lc.Activate(ctx, uid, token); err == nil || errors.Is(err, ErrActivationFailed) {
		t.Fatalf("expected a storage error, got %v", err)
	}
	if got, _ := f.users.GetByID(ctx, u.ID); got.IsActive {
		t.Fatal("account must stay inactive when the grant fails")
	}

	if err := f.lc.Activate(ctx, uid, token); err != nil {
		t.Fatalf("retry with the same link: %v", err)
	}
	got, _ := f.users.GetByID(ctx, u.ID)
	tags, err := f.perms.TagsForUser(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsActive || len(tags) != 1 || tags[0] != model.PermissionCustomer {
		t.Fatalf("expected active customer, got active=%v tags=%v", got.IsActive, tags)
	}
}
