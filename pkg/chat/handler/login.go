package handler

import (
	"context"
	"encoding/json"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
	"github.com/quillchat/quill/pkg/controlplane/models"
)

// loginApplyLimit is the page of pending applications the login reply
// carries. Older entries are fetched by the client on demand.
const loginApplyLimit = 10

// Login authenticates a session against the token the allocation
// service stored in Redis, loads the user's profile, pending
// applications and friend list, and claims the user for this node:
// registry binding, presence entry and login count.
func (h *Handlers) Login(ctx context.Context, m *session.Message) protocol.ErrorCode {
	var req protocol.LoginRequest
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		logger.WarnCtx(ctx, "malformed login payload", logger.Err(err))
		return replyParseError(m.Sess, protocol.MsgLoginRsp)
	}

	rsp := protocol.LoginResponse{Error: protocol.CodeSuccess}
	defer func() {
		m.Sess.SendJSON(protocol.MsgLoginRsp, &rsp)
	}()

	token, err := h.directory.UserToken(ctx, req.UID)
	if err != nil || token == "" {
		if err != nil {
			logger.WarnCtx(ctx, "token lookup failed", logger.UID(req.UID), logger.Err(err))
		}
		rsp.Error = protocol.CodeUIDInvalid
		return rsp.Error
	}
	if token != req.Token {
		logger.InfoCtx(ctx, "login rejected, token mismatch", logger.UID(req.UID))
		rsp.Error = protocol.CodeTokenInvalid
		return rsp.Error
	}

	profile, err := h.directory.UserByUID(ctx, req.UID)
	if err != nil {
		logger.WarnCtx(ctx, "profile lookup failed", logger.UID(req.UID), logger.Err(err))
		rsp.Error = protocol.CodeUIDInvalid
		return rsp.Error
	}
	rsp.UserProfile = profile
	rsp.ApplyList = h.loadApplyList(ctx, req.UID)
	rsp.FriendList = h.loadFriendList(ctx, req.UID)

	// The session is live from here on: a failure past this point must
	// not leave a half-registered user, so the remaining steps only log.
	if displaced := h.binder.BindUser(req.UID, m.Sess); displaced != nil {
		logger.InfoCtx(ctx, "displacing previous session",
			logger.UID(req.UID), logger.SessionID(displaced.ID()))
		displaced.Close()
	}

	if err := h.directory.SetUserNode(ctx, req.UID, h.node); err != nil {
		logger.WarnCtx(ctx, "presence write failed", logger.UID(req.UID), logger.Err(err))
	}

	if m.Sess.MarkCounted() {
		if _, err := h.directory.IncrLoginCount(ctx, h.node, 1); err != nil {
			logger.WarnCtx(ctx, "login count increment failed", logger.Err(err))
		}
	}

	// The client may have vanished while this login sat in the dispatch
	// queue. Its serve loop has already run eviction and found nothing to
	// clean, so whatever was just registered must be released here or the
	// user stays online on a dead session until the next login.
	if m.Sess.Closed() {
		logger.InfoCtx(ctx, "session died during login, releasing registration",
			logger.UID(req.UID))
		h.releaseDeadLogin(ctx, req.UID, m.Sess)
		return protocol.CodeSuccess
	}

	logger.InfoCtx(ctx, "user logged in",
		logger.UID(req.UID), logger.Username(profile.Name), logger.Node(h.node))
	return protocol.CodeSuccess
}

// releaseDeadLogin tears down the registration of a login that
// completed on an already closed session: the registry binding, the
// presence entry and the login count contribution. Each step applies
// only when this session still owns it, so a concurrent relogin on a
// fresh session is never disturbed.
func (h *Handlers) releaseDeadLogin(ctx context.Context, uid int64, s *session.Session) {
	if owned := h.binder.Remove(s); owned {
		if _, err := h.directory.ClearUserNode(ctx, uid, h.node); err != nil {
			logger.WarnCtx(ctx, "presence cleanup failed", logger.UID(uid), logger.Err(err))
		}
	}
	if s.TakeCounted() {
		if _, err := h.directory.IncrLoginCount(ctx, h.node, -1); err != nil {
			logger.WarnCtx(ctx, "login count decrement failed", logger.Err(err))
		}
	}
}

func (h *Handlers) loadApplyList(ctx context.Context, uid int64) []protocol.ApplyEntry {
	records, err := h.social.ListFriendApplies(ctx, uid, 0, loginApplyLimit)
	if err != nil {
		logger.WarnCtx(ctx, "apply list lookup failed", logger.UID(uid), logger.Err(err))
		return nil
	}
	return applyEntries(records)
}

func (h *Handlers) loadFriendList(ctx context.Context, uid int64) []protocol.FriendEntry {
	records, err := h.social.ListFriends(ctx, uid)
	if err != nil {
		logger.WarnCtx(ctx, "friend list lookup failed", logger.UID(uid), logger.Err(err))
		return nil
	}
	return friendEntries(records)
}

func applyEntries(records []models.ApplyRecord) []protocol.ApplyEntry {
	if len(records) == 0 {
		return nil
	}
	entries := make([]protocol.ApplyEntry, len(records))
	for i, r := range records {
		entries[i] = protocol.ApplyEntry{
			Name:   r.Name,
			UID:    r.UID,
			Icon:   r.Icon,
			Nick:   r.Nick,
			Sex:    r.Sex,
			Desc:   r.Desc,
			Status: r.Status,
		}
	}
	return entries
}

func friendEntries(records []models.FriendRecord) []protocol.FriendEntry {
	if len(records) == 0 {
		return nil
	}
	entries := make([]protocol.FriendEntry, len(records))
	for i, r := range records {
		entries[i] = protocol.FriendEntry{
			Name: r.Name,
			UID:  r.UID,
			Icon: r.Icon,
			Nick: r.Nick,
			Sex:  r.Sex,
			Desc: r.Desc,
			Back: r.Back,
		}
	}
	return entries
}
