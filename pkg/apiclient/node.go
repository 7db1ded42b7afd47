package apiclient

// NodeInfo describes a chat node and its load.
type NodeInfo struct {
	Name           string           `json:"name"`
	ActiveSessions int              `json:"active_sessions"`
	OnlineUsers    int              `json:"online_users"`
	LoginCounts    map[string]int64 `json:"login_counts,omitempty"`
}

// GetNode returns the node's identity and session counters.
func (c *Client) GetNode() (*NodeInfo, error) {
	return getResource[NodeInfo](c, "/api/v1/node")
}
