package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/controlplane/models"
)

// TokenSeeder writes login tokens into shared presence state. The redis
// cache client satisfies it.
type TokenSeeder interface {
	SetUserToken(ctx context.Context, uid int64, token string) error
}

// UserHandler handles account management API endpoints.
type UserHandler struct {
	store  models.UserStore
	tokens TokenSeeder
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store models.UserStore, tokens TokenSeeder) *UserHandler {
	return &UserHandler{
		store:  store,
		tokens: tokens,
	}
}

// CreateUserRequest is the request body for POST /api/v1/users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
	Nick     string `json:"nick,omitempty"`
	Desc     string `json:"desc,omitempty"`
	Sex      int    `json:"sex,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// ChatUserResponse is a sanitized account representation for API output.
type ChatUserResponse struct {
	UID       int64     `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Nick      string    `json:"nick,omitempty"`
	Desc      string    `json:"desc,omitempty"`
	Sex       int       `json:"sex"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// GeneratedPassword is returned exactly once, on create, when the
	// request omitted a password. It is never readable again.
	GeneratedPassword string `json:"generated_password,omitempty"`
}

// Create handles POST /api/v1/users.
// Creates a new chat account. When the request omits a password, a random
// one is generated and returned in the response.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		BadRequest(w, "Name is required")
		return
	}

	password := req.Password
	generated := ""
	if password == "" {
		var err error
		password, err = models.GeneratePassword(0)
		if err != nil {
			InternalServerError(w, "Failed to generate password")
			return
		}
		generated = password
	}

	passwordHash, err := models.HashPassword(password)
	if err != nil {
		if errors.Is(err, models.ErrPasswordTooShort) || errors.Is(err, models.ErrPasswordTooLong) {
			BadRequest(w, err.Error())
			return
		}
		InternalServerError(w, "Failed to hash password")
		return
	}

	user := &models.User{
		Name:   req.Name,
		Email:  req.Email,
		Passwd: passwordHash,
		Nick:   req.Nick,
		Desc:   req.Desc,
		Sex:    req.Sex,
		Icon:   req.Icon,
	}

	if err := user.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			Conflict(w, "User already exists")
			return
		}
		InternalServerError(w, "Failed to create user")
		return
	}

	response := chatUserToResponse(user)
	response.GeneratedPassword = generated
	WriteJSONCreated(w, response)
}

// List handles GET /api/v1/users.
// Lists all chat accounts.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list users")
		return
	}

	response := make([]ChatUserResponse, len(users))
	for i, u := range users {
		response[i] = chatUserToResponse(u)
	}

	WriteJSONOK(w, map[string]interface{}{
		"users": response,
		"count": len(response),
	})
}

// Get handles GET /api/v1/users/{uid}.
// Returns a single chat account.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := uidParam(w, r)
	if !ok {
		return
	}

	user, err := h.store.GetUserByUID(r.Context(), uid)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "No user with this uid")
			return
		}
		InternalServerError(w, "Failed to fetch user")
		return
	}

	WriteJSONOK(w, chatUserToResponse(user))
}

// SeedTokenRequest is the request body for POST /api/v1/users/{uid}/token.
type SeedTokenRequest struct {
	// Token is optional. When empty a random token is minted.
	Token string `json:"token,omitempty"`
}

// SeedTokenResponse is the response body for POST /api/v1/users/{uid}/token.
type SeedTokenResponse struct {
	UID   int64  `json:"uid"`
	Token string `json:"token"`
}

// SeedToken handles POST /api/v1/users/{uid}/token.
// Writes the user's login token into redis so a client can authenticate
// on the chat port. This stands in for the login gateway in small
// deployments and in tests.
func (h *UserHandler) SeedToken(w http.ResponseWriter, r *http.Request) {
	uid, ok := uidParam(w, r)
	if !ok {
		return
	}

	if h.tokens == nil {
		InternalServerError(w, "Token store not available")
		return
	}

	// An empty body means "mint one for me".
	var req SeedTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "Invalid request body")
		return
	}

	if _, err := h.store.GetUserByUID(r.Context(), uid); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			NotFound(w, "No user with this uid")
			return
		}
		InternalServerError(w, "Failed to fetch user")
		return
	}

	token := req.Token
	if token == "" {
		token = uuid.NewString()
	}

	if err := h.tokens.SetUserToken(r.Context(), uid, token); err != nil {
		InternalServerError(w, "Failed to store token")
		return
	}

	logger.InfoCtx(r.Context(), "login token seeded", "uid", uid)
	WriteJSONOK(w, SeedTokenResponse{UID: uid, Token: token})
}

// uidParam parses the {uid} route parameter, writing a 400 on failure.
func uidParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "uid")
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || uid <= 0 {
		BadRequest(w, "Invalid uid")
		return 0, false
	}
	return uid, true
}

// chatUserToResponse converts a User to a ChatUserResponse for API output.
func chatUserToResponse(user *models.User) ChatUserResponse {
	return ChatUserResponse{
		UID:       user.UID,
		Name:      user.Name,
		Email:     user.Email,
		Nick:      user.Nick,
		Desc:      user.Desc,
		Sex:       user.Sex,
		Icon:      user.Icon,
		CreatedAt: user.CreatedAt,
	}
}
