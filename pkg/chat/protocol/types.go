package protocol

// ErrorResponse is the minimal reply body used when a request payload
// fails to parse and no request fields are available to echo.
type ErrorResponse struct {
	Error ErrorCode `json:"error"`
}

// UserProfile is the JSON shape of a user's base information as it
// travels in replies and in the Redis profile cache. The Passwd field
// carries the stored credential hash; it is never a cleartext password.
type UserProfile struct {
	UID    int64  `json:"uid"`
	Name   string `json:"name"`
	Passwd string `json:"pwd"`
	Email  string `json:"email"`
	Nick   string `json:"nick"`
	Desc   string `json:"desc"`
	Sex    int    `json:"sex"`
	Icon   string `json:"icon"`
}

// UserSummary is the abbreviated profile carried in friend
// authorization replies.
type UserSummary struct {
	Name string `json:"name"`
	Nick string `json:"nick"`
	Icon string `json:"icon"`
	Sex  int    `json:"sex"`
	UID  int64  `json:"uid"`
}

// ApplyEntry is one pending friend application in a login reply.
type ApplyEntry struct {
	Name   string `json:"name"`
	UID    int64  `json:"uid"`
	Icon   string `json:"icon"`
	Nick   string `json:"nick"`
	Sex    int    `json:"sex"`
	Desc   string `json:"desc"`
	Status int    `json:"status"`
}

// FriendEntry is one confirmed friend in a login reply. Back is the
// remark name the logged-in user gave this friend.
type FriendEntry struct {
	Name string `json:"name"`
	UID  int64  `json:"uid"`
	Icon string `json:"icon"`
	Nick string `json:"nick"`
	Sex  int    `json:"sex"`
	Desc string `json:"desc"`
	Back string `json:"back"`
}

// LoginRequest is the payload of MsgLogin.
type LoginRequest struct {
	UID   int64  `json:"uid"`
	Token string `json:"token"`
}

// LoginResponse is the payload of MsgLoginRsp. The embedded profile is
// flattened into the object on success and left out entirely on
// failure, so an error reply marshals as a bare {"error":N}.
type LoginResponse struct {
	Error ErrorCode `json:"error"`
	*UserProfile
	ApplyList  []ApplyEntry  `json:"apply_list,omitempty"`
	FriendList []FriendEntry `json:"friend_list,omitempty"`
}

// SearchRequest is the payload of MsgSearchUser. UID holds either an
// all-digits user id or a user name.
type SearchRequest struct {
	UID string `json:"uid"`
}

// SearchResponse is the payload of MsgSearchUserRsp, shaped like
// LoginResponse without the friend arrays.
type SearchResponse struct {
	Error ErrorCode `json:"error"`
	*UserProfile
}

// AddFriendRequest is the payload of MsgAddFriend.
type AddFriendRequest struct {
	UID       int64  `json:"uid"`
	ApplyName string `json:"applyname"`
	BakName   string `json:"bakname"`
	ToUID     int64  `json:"touid"`
}

// AddFriendResponse is the payload of MsgAddFriendRsp.
type AddFriendResponse struct {
	Error ErrorCode `json:"error"`
}

// AddFriendNotify is the payload of MsgNotifyAddFriend delivered to the
// application target. Icon, Sex and Nick are filled from the
// applicant's profile and stay zero-valued when the lookup fails.
type AddFriendNotify struct {
	Error    ErrorCode `json:"error"`
	ApplyUID int64     `json:"applyuid"`
	Name     string    `json:"name"`
	Desc     string    `json:"desc"`
	Icon     string    `json:"icon"`
	Sex      int       `json:"sex"`
	Nick     string    `json:"nick"`
}

// AuthFriendRequest is the payload of MsgAuthFriend.
type AuthFriendRequest struct {
	FromUID int64  `json:"fromuid"`
	ToUID   int64  `json:"touid"`
	Back    string `json:"back"`
}

// AuthFriendResponse is the payload of MsgAuthFriendRsp. On success the
// embedded summary describes the authorized peer.
type AuthFriendResponse struct {
	Error ErrorCode `json:"error"`
	*UserSummary
}

// AuthFriendNotify is the payload of MsgNotifyAuthFriend delivered to
// the original applicant; the profile fields describe the authorizer.
type AuthFriendNotify struct {
	Error   ErrorCode `json:"error"`
	FromUID int64     `json:"fromuid"`
	ToUID   int64     `json:"touid"`
	Name    string    `json:"name"`
	Nick    string    `json:"nick"`
	Icon    string    `json:"icon"`
	Sex     int       `json:"sex"`
}

// TextMessage is a single chat message within a text-chat batch.
type TextMessage struct {
	MsgID   string `json:"msgid"`
	Content string `json:"content"`
}

// TextChatRequest is the payload of MsgTextChat.
type TextChatRequest struct {
	FromUID   int64         `json:"fromuid"`
	ToUID     int64         `json:"touid"`
	TextArray []TextMessage `json:"text_array"`
}

// TextChatResponse is the payload of MsgTextChatRsp and, byte for byte,
// of MsgNotifyTextChat: the sender gets the echo, the target gets the
// same body as a notification.
type TextChatResponse struct {
	Error     ErrorCode     `json:"error"`
	TextArray []TextMessage `json:"text_array"`
	FromUID   int64         `json:"fromuid"`
	ToUID     int64         `json:"touid"`
}
