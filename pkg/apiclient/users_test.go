package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/users", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(userList{
			Users: []ChatUser{
				{UID: 1, Name: "alice", Nick: "Alice"},
				{UID: 2, Name: "bob", Nick: "Bob"},
			},
			Count: 2,
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	users, err := client.ListUsers()

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)
}

func TestGetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/users/42", r.URL.Path)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(ChatUser{
			UID:   42,
			Name:  "alice",
			Nick:  "Alice",
			Email: "alice@example.com",
			Sex:   1,
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	user, err := client.GetUser(42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.UID)
	assert.Equal(t, "alice", user.Name)
	assert.Equal(t, "Alice", user.Nick)
}

func TestGetUser_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(APIError{
			Title:  "Not Found",
			Status: http.StatusNotFound,
			Detail: "No user with this uid",
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	user, err := client.GetUser(99)

	assert.Nil(t, user)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
}

func TestCreateUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/users", r.URL.Path)

		var req CreateUserRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "carol", req.Name)
		assert.Equal(t, "password123", req.Password)
		assert.Equal(t, "Carol", req.Nick)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ChatUser{
			UID:  7,
			Name: req.Name,
			Nick: req.Nick,
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	user, err := client.CreateUser(&CreateUserRequest{
		Name:     "carol",
		Password: "password123",
		Nick:     "Carol",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UID)
	assert.Equal(t, "carol", user.Name)
}

func TestCreateUser_GeneratedPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Empty(t, req.Password)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ChatUser{
			UID:               8,
			Name:              req.Name,
			GeneratedPassword: "generated-secret",
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	user, err := client.CreateUser(&CreateUserRequest{Name: "dave"})

	require.NoError(t, err)
	assert.Equal(t, "generated-secret", user.GeneratedPassword)
}

func TestCreateUser_Duplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(APIError{
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: "A user with this name already exists",
		})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	user, err := client.CreateUser(&CreateUserRequest{
		Name:     "alice",
		Password: "password123",
	})

	assert.Nil(t, user)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsConflict())
}

func TestSeedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/users/42/token", r.URL.Path)

		var req SeedTokenRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "tok-123", req.Token)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(SeedTokenResponse{UID: 42, Token: req.Token})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	resp, err := client.SeedToken(42, "tok-123")

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.UID)
	assert.Equal(t, "tok-123", resp.Token)
}

func TestSeedToken_Minted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SeedTokenRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Empty(t, req.Token)

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(SeedTokenResponse{UID: 42, Token: "minted-token"})
	}))
	defer server.Close()

	client := New(server.URL).WithToken("test-token")
	resp, err := client.SeedToken(42, "")

	require.NoError(t, err)
	assert.Equal(t, "minted-token", resp.Token)
}
