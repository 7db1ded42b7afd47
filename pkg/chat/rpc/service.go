package rpc

import (
	"context"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

// NotifyService is the inbound half of cross-node delivery. A peer
// node that resolved a target user to this node calls it to hand over
// the notification; the service re-frames the payload and enqueues it
// on the local session.
//
// Delivery is fire and forget: a target that logged out between the
// peer's lookup and this call is not an error, so every method returns
// a success reply. ErrRPCFailed is produced only by the calling side
// on transport failure.
type NotifyService struct {
	registry *session.Registry
}

// NewNotifyService returns a service delivering through reg.
func NewNotifyService(reg *session.Registry) *NotifyService {
	return &NotifyService{registry: reg}
}

var _ PeerNotifyServer = (*NotifyService)(nil)

func (s *NotifyService) NotifyAddFriend(ctx context.Context, req *AddFriendNotifyRequest) (*AddFriendNotifyReply, error) {
	s.deliver(ctx, req.ToUID, protocol.MsgNotifyAddFriend, req.AddFriendNotify)
	return &AddFriendNotifyReply{
		Error:    protocol.CodeSuccess,
		ApplyUID: req.ApplyUID,
		ToUID:    req.ToUID,
	}, nil
}

func (s *NotifyService) NotifyAuthFriend(ctx context.Context, req *AuthFriendNotifyRequest) (*AuthFriendNotifyReply, error) {
	s.deliver(ctx, req.ToUID, protocol.MsgNotifyAuthFriend, req.AuthFriendNotify)
	return &AuthFriendNotifyReply{
		Error:   protocol.CodeSuccess,
		FromUID: req.FromUID,
		ToUID:   req.ToUID,
	}, nil
}

func (s *NotifyService) NotifyTextChatMsg(ctx context.Context, req *TextChatNotifyRequest) (*TextChatNotifyReply, error) {
	s.deliver(ctx, req.ToUID, protocol.MsgNotifyTextChat, req.TextChatResponse)
	return &TextChatNotifyReply{
		Error:   protocol.CodeSuccess,
		FromUID: req.FromUID,
		ToUID:   req.ToUID,
	}, nil
}

func (s *NotifyService) deliver(ctx context.Context, uid int64, id uint16, payload any) {
	sess, ok := s.registry.User(uid)
	if !ok {
		logger.DebugCtx(ctx, "notify target not on this node",
			logger.ToUID(uid),
			logger.MsgID(id),
		)
		return
	}
	sess.SendJSON(id, payload)
	logger.DebugCtx(ctx, "peer notification delivered",
		logger.ToUID(uid),
		logger.MsgID(id),
		logger.SessionID(sess.ID()),
	)
}
