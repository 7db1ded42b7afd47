//go:build integration

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quillchat/quill/pkg/controlplane/models"
)

// Shared test container for all cache tests
var sharedRedis *redisContainer

type redisContainer struct {
	container testcontainers.Container
	addr      string
}

// TestMain sets up a shared Redis container for all tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
			wait.ForListeningPort("6379/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	sharedRedis = &redisContainer{
		container: container,
		addr:      fmt.Sprintf("%s:%s", host, port.Port()),
	}

	exitCode := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}

	os.Exit(exitCode)
}

// fakeLoader is an in-memory UserLoader that counts store hits.
type fakeLoader struct {
	mu    sync.Mutex
	users []*models.User
	calls int
}

func (f *fakeLoader) GetUserByUID(_ context.Context, uid int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, u := range f.users {
		if u.UID == uid {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeLoader) GetUserByName(_ context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, u := range f.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, loader UserLoader) *Client {
	t.Helper()

	if sharedRedis == nil {
		t.Fatal("shared redis container not initialized - TestMain() not run?")
	}

	client, err := New(context.Background(), &Config{Addr: sharedRedis.addr}, loader, nil)
	if err != nil {
		t.Fatalf("failed to create cache client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserToken(t *testing.T) {
	client := newTestClient(t, &fakeLoader{})
	ctx := context.Background()

	t.Run("absent token is empty, not an error", func(t *testing.T) {
		token, err := client.UserToken(ctx, 1001)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "" {
			t.Errorf("expected empty token, got %q", token)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		if err := client.SetUserToken(ctx, 1002, "secret-token"); err != nil {
			t.Fatalf("failed to set token: %v", err)
		}
		token, err := client.UserToken(ctx, 1002)
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if token != "secret-token" {
			t.Errorf("expected secret-token, got %q", token)
		}
	})
}

func TestUserNodePresence(t *testing.T) {
	client := newTestClient(t, &fakeLoader{})
	ctx := context.Background()

	t.Run("offline user has no node", func(t *testing.T) {
		node, err := client.UserNode(ctx, 2001)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if node != "" {
			t.Errorf("expected empty node, got %q", node)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := client.SetUserNode(ctx, 2002, "quill-a"); err != nil {
			t.Fatalf("failed to set node: %v", err)
		}
		node, err := client.UserNode(ctx, 2002)
		if err != nil {
			t.Fatalf("failed to get node: %v", err)
		}
		if node != "quill-a" {
			t.Errorf("expected quill-a, got %q", node)
		}
	})

	t.Run("clear only deletes own presence", func(t *testing.T) {
		if err := client.SetUserNode(ctx, 2003, "quill-b"); err != nil {
			t.Fatalf("failed to set node: %v", err)
		}

		deleted, err := client.ClearUserNode(ctx, 2003, "quill-a")
		if err != nil {
			t.Fatalf("failed to clear node: %v", err)
		}
		if deleted {
			t.Error("clear with wrong node name should not delete")
		}
		node, err := client.UserNode(ctx, 2003)
		if err != nil || node != "quill-b" {
			t.Errorf("expected presence to survive, got %q err %v", node, err)
		}

		deleted, err = client.ClearUserNode(ctx, 2003, "quill-b")
		if err != nil {
			t.Fatalf("failed to clear node: %v", err)
		}
		if !deleted {
			t.Error("clear with matching node name should delete")
		}
		node, err = client.UserNode(ctx, 2003)
		if err != nil || node != "" {
			t.Errorf("expected presence gone, got %q err %v", node, err)
		}
	})

	t.Run("clear of absent key reports not deleted", func(t *testing.T) {
		deleted, err := client.ClearUserNode(ctx, 2004, "quill-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deleted {
			t.Error("expected no deletion for absent key")
		}
	})
}

func TestLoginCounts(t *testing.T) {
	client := newTestClient(t, &fakeLoader{})
	ctx := context.Background()

	if err := client.SetLoginCount(ctx, "node-lc-a", 0); err != nil {
		t.Fatalf("failed to set count: %v", err)
	}

	count, err := client.IncrLoginCount(ctx, "node-lc-a", 1)
	if err != nil {
		t.Fatalf("failed to increment: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}

	count, err = client.IncrLoginCount(ctx, "node-lc-a", -1)
	if err != nil {
		t.Fatalf("failed to decrement: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}

	counts, err := client.LoginCounts(ctx)
	if err != nil {
		t.Fatalf("failed to read counts: %v", err)
	}
	if got, ok := counts["node-lc-a"]; !ok || got != 0 {
		t.Errorf("expected node-lc-a count 0, got %v (present %v)", got, ok)
	}

	if err := client.DeleteLoginCount(ctx, "node-lc-a"); err != nil {
		t.Fatalf("failed to delete count: %v", err)
	}
	counts, err = client.LoginCounts(ctx)
	if err != nil {
		t.Fatalf("failed to read counts: %v", err)
	}
	if _, ok := counts["node-lc-a"]; ok {
		t.Error("expected node-lc-a removed from hash")
	}
}

func TestProfileReadThrough(t *testing.T) {
	loader := &fakeLoader{users: []*models.User{{
		UID:    3001,
		Name:   "ada",
		Passwd: "bcrypt-hash",
		Nick:   "Ada",
		Desc:   "likes chess",
		Sex:    models.SexFemale,
		Icon:   "ada.png",
	}}}
	client := newTestClient(t, loader)
	ctx := context.Background()

	t.Run("miss loads from store and writes back", func(t *testing.T) {
		profile, err := client.UserByUID(ctx, 3001)
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if profile.Name != "ada" || profile.Sex != models.SexFemale {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if profile.Passwd != "bcrypt-hash" {
			t.Errorf("expected credential hash carried, got %q", profile.Passwd)
		}
		if loader.callCount() != 1 {
			t.Errorf("expected 1 store call, got %d", loader.callCount())
		}
	})

	t.Run("second lookup is served from redis", func(t *testing.T) {
		profile, err := client.UserByUID(ctx, 3001)
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if profile.UID != 3001 || profile.Nick != "Ada" {
			t.Errorf("unexpected cached profile: %+v", profile)
		}
		if loader.callCount() != 1 {
			t.Errorf("expected cached hit without store call, got %d calls", loader.callCount())
		}
	})

	t.Run("name lookups use their own key", func(t *testing.T) {
		before := loader.callCount()
		profile, err := client.UserByName(ctx, "ada")
		if err != nil {
			t.Fatalf("failed to get profile by name: %v", err)
		}
		if profile.UID != 3001 {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if loader.callCount() != before+1 {
			t.Error("expected name lookup to miss independently of uid key")
		}

		profile, err = client.UserByName(ctx, "ada")
		if err != nil {
			t.Fatalf("failed to get cached profile by name: %v", err)
		}
		if profile.Icon != "ada.png" || loader.callCount() != before+1 {
			t.Errorf("expected cached name hit, got %+v after %d calls", profile, loader.callCount())
		}
	})

	t.Run("unknown user is not negatively cached", func(t *testing.T) {
		before := loader.callCount()
		if _, err := client.UserByUID(ctx, 9999); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := client.UserByUID(ctx, 9999); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if loader.callCount() != before+2 {
			t.Errorf("expected both lookups to reach the store, got %d extra calls", loader.callCount()-before)
		}
	})

	t.Run("corrupt entry falls back to store", func(t *testing.T) {
		loader2 := &fakeLoader{users: []*models.User{{UID: 3002, Name: "bob", Passwd: "x", Nick: "Bobby"}}}
		client2 := newTestClient(t, loader2)

		if err := client2.rdb.Set(ctx, profileKey(3002), "{not json", 0).Err(); err != nil {
			t.Fatalf("failed to plant corrupt entry: %v", err)
		}

		profile, err := client2.UserByUID(ctx, 3002)
		if err != nil {
			t.Fatalf("failed to get profile: %v", err)
		}
		if profile.Nick != "Bobby" || loader2.callCount() != 1 {
			t.Errorf("expected store fallback, got %+v after %d calls", profile, loader2.callCount())
		}

		profile, err = client2.UserByUID(ctx, 3002)
		if err != nil {
			t.Fatalf("failed to get repaired profile: %v", err)
		}
		if profile.Nick != "Bobby" || loader2.callCount() != 1 {
			t.Error("expected write-back to repair the corrupt entry")
		}
	})
}
