package handler

import (
	"context"
	"encoding/json"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/chat/protocol"
	"github.com/quillchat/quill/pkg/chat/session"
)

// TextChat relays a batch of text messages. The sender gets the batch
// echoed back as confirmation and the recipient receives the identical
// body as a notification, on this node or across the cluster.
func (h *Handlers) TextChat(ctx context.Context, m *session.Message) protocol.ErrorCode {
	var req protocol.TextChatRequest
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		logger.WarnCtx(ctx, "malformed text chat payload", logger.Err(err))
		return replyParseError(m.Sess, protocol.MsgTextChatRsp)
	}

	rsp := protocol.TextChatResponse{
		Error:     protocol.CodeSuccess,
		TextArray: req.TextArray,
		FromUID:   req.FromUID,
		ToUID:     req.ToUID,
	}
	defer func() {
		m.Sess.SendJSON(protocol.MsgTextChatRsp, &rsp)
	}()

	logger.DebugCtx(ctx, "text chat",
		logger.FromUID(req.FromUID), logger.ToUID(req.ToUID),
		"messages", len(req.TextArray))

	h.notifier.NotifyTextChat(ctx, rsp)
	return protocol.CodeSuccess
}
