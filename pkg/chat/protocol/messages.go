package protocol

// Message ids recognized on the chat session. The values are part of the
// wire protocol and must stay stable across nodes and client releases.
const (
	MsgLogin            uint16 = 1005 // C→S login request
	MsgLoginRsp         uint16 = 1006 // S→C login response
	MsgSearchUser       uint16 = 1007 // C→S user lookup
	MsgSearchUserRsp    uint16 = 1008 // S→C user lookup response
	MsgAddFriend        uint16 = 1009 // C→S friend apply
	MsgAddFriendRsp     uint16 = 1010 // S→C friend apply response
	MsgNotifyAddFriend  uint16 = 1011 // S→C inbound friend apply notice
	MsgAuthFriend       uint16 = 1013 // C→S friend authorization
	MsgAuthFriendRsp    uint16 = 1014 // S→C friend authorization response
	MsgNotifyAuthFriend uint16 = 1015 // S→C inbound friend authorization notice
	MsgTextChat         uint16 = 1017 // C→S text message send
	MsgTextChatRsp      uint16 = 1018 // S→C text message send response
	MsgNotifyTextChat   uint16 = 1019 // S→C inbound text message
)

var msgNames = map[uint16]string{
	MsgLogin:            "LOGIN",
	MsgLoginRsp:         "LOGIN_RSP",
	MsgSearchUser:       "SEARCH_USER",
	MsgSearchUserRsp:    "SEARCH_USER_RSP",
	MsgAddFriend:        "ADD_FRIEND",
	MsgAddFriendRsp:     "ADD_FRIEND_RSP",
	MsgNotifyAddFriend:  "NOTIFY_ADD_FRIEND",
	MsgAuthFriend:       "AUTH_FRIEND",
	MsgAuthFriendRsp:    "AUTH_FRIEND_RSP",
	MsgNotifyAuthFriend: "NOTIFY_AUTH_FRIEND",
	MsgTextChat:         "TEXT_CHAT",
	MsgTextChatRsp:      "TEXT_CHAT_RSP",
	MsgNotifyTextChat:   "NOTIFY_TEXT_CHAT",
}

// MsgName returns a human-readable name for a message id, for logging.
// Unknown ids format as "UNKNOWN".
func MsgName(id uint16) string {
	if name, ok := msgNames[id]; ok {
		return name
	}
	return "UNKNOWN"
}
