package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Skufu/rxguard/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return NewServiceWithCost(s, bcrypt.MinCost), s
}

func TestRegisterAndLogin(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "pw123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	hash, err := s.PasswordHash(ctx, "alice")
	if err != nil {
		t.Fatalf("PasswordHash: %v", err)
	}
	if hash == "pw123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("stored value is not a bcrypt hash: %q", hash)
	}

	name, err := svc.Login(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if name != "alice" {
		t.Fatalf("username=%q", name)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "pw123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Register(ctx, "alice", "other"); !errors.Is(err, store.ErrUserExists) {
		t.Fatalf("err=%v, want ErrUserExists", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tc := range [][2]string{{"", "pw"}, {"bob", ""}, {"  ", "pw"}} {
		if err := svc.Register(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("Register(%q,%q) err=%v", tc[0], tc[1], err)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.Register(ctx, "alice", "pw123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := map[string][2]string{
		"wrong password": {"alice", "wrong"},
		"unknown user":   {"mallory", "pw123"},
		"empty":          {"", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Login(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err=%v, want ErrInvalidCredentials", err)
			}
		})
	}
}
