// Package handler implements the business logic behind every chat
// message id: login, user search, the friend workflow and text chat.
//
// Handlers run on the dispatch consumer goroutine, one frame at a time.
// They always answer the sender with exactly one reply frame and never
// close the session; malformed or failing requests are reported through
// the error field of the reply. Notifications to other users ride the
// router and are fire-and-forget.
package handler

import (
	"context"

	"github.com/quillchat/quill/pkg/chat/dispatch"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/controlplane/models"
)

// Directory is the slice of the Redis layer handlers consume: token
// validation, profile lookups and the presence bookkeeping done at
// login.
type Directory interface {
	UserToken(ctx context.Context, uid int64) (string, error)
	UserByUID(ctx context.Context, uid int64) (*protocol.UserProfile, error)
	UserByName(ctx context.Context, name string) (*protocol.UserProfile, error)
	SetUserNode(ctx context.Context, uid int64, node string) error
	ClearUserNode(ctx context.Context, uid int64, node string) (bool, error)
	IncrLoginCount(ctx context.Context, node string, delta int64) (int64, error)
}

// Social is the slice of the relational store behind the friend
// workflow.
type Social interface {
	CreateFriendApply(ctx context.Context, fromUID, toUID int64) error
	ListFriendApplies(ctx context.Context, toUID int64, offset, limit int) ([]models.ApplyRecord, error)
	AuthorizeFriend(ctx context.Context, applicantUID, authorizerUID int64, back string) error
	ListFriends(ctx context.Context, uid int64) ([]models.FriendRecord, error)
}

// Notifier fans a notification out to wherever its recipient is logged
// in. Delivery is best effort; implementations never report failure to
// the handler.
type Notifier interface {
	NotifyAddFriend(ctx context.Context, touid int64, n protocol.AddFriendNotify)
	NotifyAuthFriend(ctx context.Context, n protocol.AuthFriendNotify)
	NotifyTextChat(ctx context.Context, n protocol.TextChatResponse)
}

// Binder records which session a user logged in on, displacing any
// previous binding. Remove undoes a binding when a login completed on a
// session that died while its request was queued.
type Binder interface {
	BindUser(uid int64, s *session.Session) *session.Session
	Remove(s *session.Session) bool
}

// Options wires a Handlers instance.
type Options struct {
	// Node is this node's name as registered in presence entries and
	// the login count hash.
	Node string
	// Directory is normally the Redis cache client.
	Directory Directory
	// Social is normally the relational store.
	Social Social
	// Binder is normally the session registry.
	Binder Binder
	// Notifier is normally the cross-node router.
	Notifier Notifier
}

// Handlers carries the dependencies shared by all message handlers.
type Handlers struct {
	node      string
	directory Directory
	social    Social
	binder    Binder
	notifier  Notifier
}

// New builds the handler set from opts.
func New(opts Options) *Handlers {
	return &Handlers{
		node:      opts.Node,
		directory: opts.Directory,
		social:    opts.Social,
		binder:    opts.Binder,
		notifier:  opts.Notifier,
	}
}

// Register installs every handler on the dispatch queue.
func (h *Handlers) Register(q *dispatch.Queue) {
	q.Register(protocol.MsgLogin, h.Login)
	q.Register(protocol.MsgSearchUser, h.SearchUser)
	q.Register(protocol.MsgAddFriend, h.AddFriend)
	q.Register(protocol.MsgAuthFriend, h.AuthFriend)
	q.Register(protocol.MsgTextChat, h.TextChat)
}

// replyParseError answers a request whose payload did not decode.
func replyParseError(s *session.Session, rspID uint16) protocol.ErrorCode {
	s.SendJSON(rspID, protocol.ErrorResponse{Error: protocol.CodeJSON})
	return protocol.CodeJSON
}
