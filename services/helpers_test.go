package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/testkit"
)

// fakeSender records delivered codes per email.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func (f *fakeSender) Send(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codes == nil {
		f.codes = map[string][]string{}
	}
	f.codes[email] = append(f.codes[email], code)
	return f.err
}

func (f *fakeSender) last(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.codes[email]
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1]
}

func actorOf(u *models.User) auth.Actor {
	return auth.Actor{UserID: u.ID, Email: u.Email, Role: u.Role, TokenID: "jti-" + u.Email, ExpiresAt: time.Now().Add(time.Hour)}
}

func newAccounts(t *testing.T, db *gorm.DB) (*AccountService, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	return NewAccountService(db, issuer, auth.NewGormDenylist(db), sender, 15*time.Minute), sender
}

func registration(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0199",
		Password:  testkit.Password,
		Password2: testkit.Password,
	}
}

func intp(n int) *int { return &n }
