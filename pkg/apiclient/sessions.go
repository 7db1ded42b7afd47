package apiclient

// Session describes one live chat session on the node.
type Session struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
	UID        int64  `json:"uid,omitempty"`
}

type sessionList struct {
	Sessions []Session `json:"sessions"`
	Count    int       `json:"count"`
}

// ListSessions returns every live session on the node.
func (c *Client) ListSessions() ([]Session, error) {
	list, err := getResource[sessionList](c, "/api/v1/sessions")
	if err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// KickSession closes a session's connection by id.
func (c *Client) KickSession(id string) error {
	return deleteResource(c, resourcePath("/api/v1/sessions/%s", id))
}
