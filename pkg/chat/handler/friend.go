package handler

import (
	"context"
	"encoding/json"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

// AddFriend records a friend application and notifies its target. The
// sender always gets a success reply: the application is persisted
// best-effort and the notification is fire-and-forget, so there is
// nothing actionable to report back.
func (h *Handlers) AddFriend(ctx context.Context, m *session.Message) protocol.ErrorCode {
	var req protocol.AddFriendRequest
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		logger.WarnCtx(ctx, "malformed add friend payload", logger.Err(err))
		return replyParseError(m.Sess, protocol.MsgAddFriendRsp)
	}

	rsp := protocol.AddFriendResponse{Error: protocol.CodeSuccess}
	defer func() {
		m.Sess.SendJSON(protocol.MsgAddFriendRsp, &rsp)
	}()

	logger.InfoCtx(ctx, "friend application",
		logger.FromUID(req.UID), logger.ToUID(req.ToUID), "applyname", req.ApplyName)

	if err := h.social.CreateFriendApply(ctx, req.UID, req.ToUID); err != nil {
		logger.WarnCtx(ctx, "failed to persist friend application",
			logger.FromUID(req.UID), logger.ToUID(req.ToUID), logger.Err(err))
	}

	// The notice carries the name the applicant chose for the
	// application; the profile only contributes icon, sex and nick.
	notify := protocol.AddFriendNotify{
		Error:    protocol.CodeSuccess,
		ApplyUID: req.UID,
		Name:     req.ApplyName,
	}
	if profile, err := h.directory.UserByUID(ctx, req.UID); err == nil {
		notify.Icon = profile.Icon
		notify.Sex = profile.Sex
		notify.Nick = profile.Nick
	} else {
		logger.DebugCtx(ctx, "applicant profile unavailable for notice",
			logger.UID(req.UID), logger.Err(err))
	}

	h.notifier.NotifyAddFriend(ctx, req.ToUID, notify)
	return protocol.CodeSuccess
}

// AuthFriend settles a friend application: the authorizer (fromuid)
// accepts the applicant (touid). The reply describes the applicant, the
// friendship is persisted in both directions, and the applicant is
// notified with the authorizer's profile. Persistence and notification
// proceed even when the reply lookup fails; authorization is the
// authorizer's intent, not a query.
func (h *Handlers) AuthFriend(ctx context.Context, m *session.Message) protocol.ErrorCode {
	var req protocol.AuthFriendRequest
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		logger.WarnCtx(ctx, "malformed auth friend payload", logger.Err(err))
		return replyParseError(m.Sess, protocol.MsgAuthFriendRsp)
	}

	rsp := protocol.AuthFriendResponse{Error: protocol.CodeSuccess}
	defer func() {
		m.Sess.SendJSON(protocol.MsgAuthFriendRsp, &rsp)
	}()

	logger.InfoCtx(ctx, "friend authorization",
		logger.FromUID(req.FromUID), logger.ToUID(req.ToUID))

	if applicant, err := h.directory.UserByUID(ctx, req.ToUID); err == nil {
		rsp.UserSummary = &protocol.UserSummary{
			Name: applicant.Name,
			Nick: applicant.Nick,
			Icon: applicant.Icon,
			Sex:  applicant.Sex,
			UID:  req.ToUID,
		}
	} else {
		logger.WarnCtx(ctx, "applicant profile lookup failed",
			logger.UID(req.ToUID), logger.Err(err))
		rsp.Error = protocol.CodeUIDInvalid
	}

	if err := h.social.AuthorizeFriend(ctx, req.ToUID, req.FromUID, req.Back); err != nil {
		logger.WarnCtx(ctx, "failed to persist friendship",
			logger.FromUID(req.FromUID), logger.ToUID(req.ToUID), logger.Err(err))
	}

	notify := protocol.AuthFriendNotify{
		Error:   protocol.CodeSuccess,
		FromUID: req.FromUID,
		ToUID:   req.ToUID,
	}
	if authorizer, err := h.directory.UserByUID(ctx, req.FromUID); err == nil {
		notify.Name = authorizer.Name
		notify.Nick = authorizer.Nick
		notify.Icon = authorizer.Icon
		notify.Sex = authorizer.Sex
	} else {
		logger.DebugCtx(ctx, "authorizer profile unavailable for notice",
			logger.UID(req.FromUID), logger.Err(err))
		notify.Error = protocol.CodeUIDInvalid
	}

	h.notifier.NotifyAuthFriend(ctx, notify)
	return rsp.Error
}
