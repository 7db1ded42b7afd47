package handler

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

// SearchUser resolves a profile by uid or by name. The single request
// field carries either: an all-digits string is treated as a uid,
// anything else as a name.
func (h *Handlers) SearchUser(ctx context.Context, m *session.Message) protocol.ErrorCode {
	var req protocol.SearchRequest
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		logger.WarnCtx(ctx, "malformed search payload", logger.Err(err))
		return replyParseError(m.Sess, protocol.MsgSearchUserRsp)
	}

	rsp := protocol.SearchResponse{Error: protocol.CodeSuccess}
	defer func() {
		m.Sess.SendJSON(protocol.MsgSearchUserRsp, &rsp)
	}()

	var (
		profile *protocol.UserProfile
		err     error
	)
	if uid, ok := parseUID(req.UID); ok {
		profile, err = h.directory.UserByUID(ctx, uid)
	} else {
		profile, err = h.directory.UserByName(ctx, req.UID)
	}
	if err != nil {
		logger.DebugCtx(ctx, "search found no user", "query", req.UID, logger.Err(err))
		rsp.Error = protocol.CodeUIDInvalid
		return rsp.Error
	}

	rsp.UserProfile = profile
	return protocol.CodeSuccess
}

// parseUID reports whether s is a pure-digit uid and returns its value.
func parseUID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	uid, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uid, true
}
