package apiclient

import (
	"time"
)

// ChatUser represents a chat account.
type ChatUser struct {
	UID       int64     `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Nick      string    `json:"nick,omitempty"`
	Desc      string    `json:"desc,omitempty"`
	Sex       int       `json:"sex"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// GeneratedPassword is set only on the create response, when the
	// request omitted a password.
	GeneratedPassword string `json:"generated_password,omitempty"`
}

// CreateUserRequest is the request body for creating a chat account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
	Nick     string `json:"nick,omitempty"`
	Desc     string `json:"desc,omitempty"`
	Sex      int    `json:"sex,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// SeedTokenRequest optionally carries an explicit login token to seed.
type SeedTokenRequest struct {
	Token string `json:"token,omitempty"`
}

// SeedTokenResponse is the seeded login token for a uid.
type SeedTokenResponse struct {
	UID   int64  `json:"uid"`
	Token string `json:"token"`
}

type userList struct {
	Users []ChatUser `json:"users"`
	Count int        `json:"count"`
}

// CreateUser creates a new chat account.
func (c *Client) CreateUser(req *CreateUserRequest) (*ChatUser, error) {
	return createResource[ChatUser](c, "/api/v1/users", req)
}

// ListUsers returns all chat accounts.
func (c *Client) ListUsers() ([]ChatUser, error) {
	list, err := getResource[userList](c, "/api/v1/users")
	if err != nil {
		return nil, err
	}
	return list.Users, nil
}

// GetUser returns a chat account by uid.
func (c *Client) GetUser(uid int64) (*ChatUser, error) {
	return getResource[ChatUser](c, resourcePath("/api/v1/users/%d", uid))
}

// SeedToken writes a login token for the uid into redis so a chat client
// can authenticate. An empty token asks the server to mint one.
func (c *Client) SeedToken(uid int64, token string) (*SeedTokenResponse, error) {
	req := SeedTokenRequest{Token: token}
	return createResource[SeedTokenResponse](c, resourcePath("/api/v1/users/%d/token", uid), req)
}
