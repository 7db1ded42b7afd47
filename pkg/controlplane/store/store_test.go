//go:build integration

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/quillchat/quill/pkg/controlplane/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type:        DatabaseTypeSQLite,
		AutoMigrate: true,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store
}

// mustCreateUser inserts a user and returns it with the generated uid.
func mustCreateUser(t *testing.T, s *GORMStore, name, nick string) *models.User {
	t.Helper()
	u := &models.User{
		Name:   name,
		Passwd: "hashed-password",
		Nick:   nick,
		Desc:   "about " + name,
		Icon:   name + ".png",
		Sex:    models.SexUnspecified,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	if u.UID == 0 {
		t.Fatalf("expected generated uid for %s", name)
	}
	return u
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()

		if config.Type != DatabaseTypeSQLite {
			t.Errorf("expected SQLite, got %s", config.Type)
		}
		if config.SQLite.Path == "" {
			t.Error("expected default sqlite path")
		}
	})

	t.Run("postgres defaults", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()

		if config.Postgres.Port != 5432 {
			t.Errorf("expected port 5432, got %d", config.Postgres.Port)
		}
		if config.Postgres.SSLMode != "disable" {
			t.Errorf("expected sslmode disable, got %s", config.Postgres.SSLMode)
		}
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		if err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("postgres without host is invalid", func(t *testing.T) {
		config := &Config{Type: DatabaseTypePostgres}
		config.ApplyDefaults()
		if err := config.Validate(); err == nil {
			t.Error("expected error for missing host")
		}
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		store := createTestStore(t)
		defer store.Close()

		if err := store.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})
}

func TestUserOperations(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ada := mustCreateUser(t, store, "ada", "Ada")

	t.Run("duplicate name fails", func(t *testing.T) {
		err := store.CreateUser(ctx, &models.User{Name: "ada", Passwd: "x"})
		if !errors.Is(err, models.ErrDuplicateUser) {
			t.Errorf("expected ErrDuplicateUser, got %v", err)
		}
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		if err := store.CreateUser(ctx, &models.User{Passwd: "x"}); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("get by uid", func(t *testing.T) {
		got, err := store.GetUserByUID(ctx, ada.UID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Name != "ada" {
			t.Errorf("expected name ada, got %q", got.Name)
		}
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := store.GetUserByName(ctx, "ada")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.UID != ada.UID {
			t.Errorf("expected uid %d, got %d", ada.UID, got.UID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := store.GetUserByUID(ctx, 99999); !errors.Is(err, models.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := store.GetUserByName(ctx, "nobody"); !errors.Is(err, models.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("list and count", func(t *testing.T) {
		mustCreateUser(t, store, "bob", "Bobby")

		users, err := store.ListUsers(ctx)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(users))
		}
		if users[0].UID > users[1].UID {
			t.Error("expected users ordered by uid")
		}

		count, err := store.CountUsers(ctx)
		if err != nil {
			t.Fatalf("failed to count users: %v", err)
		}
		if count != 2 {
			t.Errorf("expected count 2, got %d", count)
		}
	})
}

func TestFriendApplyOperations(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ada := mustCreateUser(t, store, "ada", "Ada")
	bob := mustCreateUser(t, store, "bob", "Bobby")

	t.Run("create apply", func(t *testing.T) {
		if err := store.CreateFriendApply(ctx, ada.UID, bob.UID); err != nil {
			t.Fatalf("failed to create apply: %v", err)
		}
	})

	t.Run("reapplying is a no-op", func(t *testing.T) {
		if err := store.CreateFriendApply(ctx, ada.UID, bob.UID); err != nil {
			t.Fatalf("reapply should not error: %v", err)
		}

		applies, err := store.ListFriendApplies(ctx, bob.UID, 0, 10)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		if len(applies) != 1 {
			t.Fatalf("expected 1 apply, got %d", len(applies))
		}
	})

	t.Run("list joins applicant profile", func(t *testing.T) {
		applies, err := store.ListFriendApplies(ctx, bob.UID, 0, 10)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		got := applies[0]
		if got.UID != ada.UID {
			t.Errorf("expected applicant uid %d, got %d", ada.UID, got.UID)
		}
		if got.Name != "ada" || got.Nick != "Ada" || got.Icon != "ada.png" || got.Desc != "about ada" {
			t.Errorf("applicant profile not joined: %+v", got)
		}
		if got.Status != models.ApplyPending {
			t.Errorf("expected pending status, got %d", got.Status)
		}
	})

	t.Run("paging", func(t *testing.T) {
		carol := mustCreateUser(t, store, "carol", "Carol")
		if err := store.CreateFriendApply(ctx, carol.UID, bob.UID); err != nil {
			t.Fatalf("failed to create apply: %v", err)
		}

		page, err := store.ListFriendApplies(ctx, bob.UID, 0, 1)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		if len(page) != 1 || page[0].UID != ada.UID {
			t.Errorf("expected first page to hold oldest apply, got %+v", page)
		}

		page, err = store.ListFriendApplies(ctx, bob.UID, 1, 1)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		if len(page) != 1 || page[0].UID != carol.UID {
			t.Errorf("expected second page to hold newest apply, got %+v", page)
		}
	})

	t.Run("no applies for applicant side", func(t *testing.T) {
		applies, err := store.ListFriendApplies(ctx, ada.UID, 0, 10)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		if len(applies) != 0 {
			t.Errorf("expected no applies addressed to ada, got %d", len(applies))
		}
	})
}

func TestAuthorizeFriend(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	ada := mustCreateUser(t, store, "ada", "Ada")
	bob := mustCreateUser(t, store, "bob", "Bobby")

	if err := store.CreateFriendApply(ctx, ada.UID, bob.UID); err != nil {
		t.Fatalf("failed to create apply: %v", err)
	}

	t.Run("authorization settles apply and writes both edges", func(t *testing.T) {
		if err := store.AuthorizeFriend(ctx, ada.UID, bob.UID, "my friend ada"); err != nil {
			t.Fatalf("failed to authorize: %v", err)
		}

		applies, err := store.ListFriendApplies(ctx, bob.UID, 0, 10)
		if err != nil {
			t.Fatalf("failed to list applies: %v", err)
		}
		if applies[0].Status != models.ApplyAuthorized {
			t.Errorf("expected authorized status, got %d", applies[0].Status)
		}

		bobFriends, err := store.ListFriends(ctx, bob.UID)
		if err != nil {
			t.Fatalf("failed to list friends: %v", err)
		}
		if len(bobFriends) != 1 {
			t.Fatalf("expected 1 friend for bob, got %d", len(bobFriends))
		}
		if bobFriends[0].UID != ada.UID || bobFriends[0].Back != "my friend ada" {
			t.Errorf("authorizer edge wrong: %+v", bobFriends[0])
		}
		if bobFriends[0].Name != "ada" || bobFriends[0].Nick != "Ada" {
			t.Errorf("friend profile not joined: %+v", bobFriends[0])
		}

		adaFriends, err := store.ListFriends(ctx, ada.UID)
		if err != nil {
			t.Fatalf("failed to list friends: %v", err)
		}
		if len(adaFriends) != 1 {
			t.Fatalf("expected 1 friend for ada, got %d", len(adaFriends))
		}
		if adaFriends[0].UID != bob.UID || adaFriends[0].Back != "" {
			t.Errorf("applicant edge wrong: %+v", adaFriends[0])
		}
	})

	t.Run("reauthorization keeps existing edges", func(t *testing.T) {
		if err := store.AuthorizeFriend(ctx, ada.UID, bob.UID, "renamed"); err != nil {
			t.Fatalf("reauthorize should not error: %v", err)
		}

		friends, err := store.ListFriends(ctx, bob.UID)
		if err != nil {
			t.Fatalf("failed to list friends: %v", err)
		}
		if len(friends) != 1 || friends[0].Back != "my friend ada" {
			t.Errorf("expected original edge kept, got %+v", friends)
		}
	})

	t.Run("authorization without apply still creates edges", func(t *testing.T) {
		carol := mustCreateUser(t, store, "carol", "Carol")

		if err := store.AuthorizeFriend(ctx, carol.UID, bob.UID, ""); err != nil {
			t.Fatalf("failed to authorize without apply: %v", err)
		}

		friends, err := store.ListFriends(ctx, carol.UID)
		if err != nil {
			t.Fatalf("failed to list friends: %v", err)
		}
		if len(friends) != 1 || friends[0].UID != bob.UID {
			t.Errorf("expected edge to bob, got %+v", friends)
		}
	})
}
