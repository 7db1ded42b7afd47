package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/quillchat/quill/pkg/chat/protocol"
)

// ServiceName is the fully qualified gRPC service nodes expose to each
// other for notification forwarding.
const ServiceName = "quill.peer.v1.PeerNotify"

// Full method names as they appear on the wire and in interceptors.
const (
	MethodNotifyAddFriend  = "/" + ServiceName + "/NotifyAddFriend"
	MethodNotifyAuthFriend = "/" + ServiceName + "/NotifyAuthFriend"
	MethodNotifyTextChat   = "/" + ServiceName + "/NotifyTextChatMsg"
)

// AddFriendNotifyRequest asks the node holding touid to deliver an
// add-friend notification. The embedded fields are exactly the
// MsgNotifyAddFriend frame payload; ToUID exists only for routing and
// is stripped by the embedding when the receiving node re-marshals the
// notification for its local session.
type AddFriendNotifyRequest struct {
	protocol.AddFriendNotify
	ToUID int64 `json:"touid"`
}

// AddFriendNotifyReply echoes the routing identifiers back to the
// calling node.
type AddFriendNotifyReply struct {
	Error    protocol.ErrorCode `json:"error"`
	ApplyUID int64              `json:"applyuid"`
	ToUID    int64              `json:"touid"`
}

// AuthFriendNotifyRequest carries a MsgNotifyAuthFriend payload; the
// frame body already names both endpoints, so no extra routing field
// is needed.
type AuthFriendNotifyRequest struct {
	protocol.AuthFriendNotify
}

// AuthFriendNotifyReply echoes the endpoints back to the calling node.
type AuthFriendNotifyReply struct {
	Error   protocol.ErrorCode `json:"error"`
	FromUID int64              `json:"fromuid"`
	ToUID   int64              `json:"touid"`
}

// TextChatNotifyRequest carries a MsgNotifyTextChat payload, which is
// byte-identical to the sender's MsgTextChatRsp body.
type TextChatNotifyRequest struct {
	protocol.TextChatResponse
}

// TextChatNotifyReply echoes the endpoints back to the calling node.
type TextChatNotifyReply struct {
	Error   protocol.ErrorCode `json:"error"`
	FromUID int64              `json:"fromuid"`
	ToUID   int64              `json:"touid"`
}

// PeerNotifyServer is implemented by the node-local delivery service.
// Implementations treat a missing target session as success so that
// racing logouts never fail the calling node.
type PeerNotifyServer interface {
	NotifyAddFriend(ctx context.Context, req *AddFriendNotifyRequest) (*AddFriendNotifyReply, error)
	NotifyAuthFriend(ctx context.Context, req *AuthFriendNotifyRequest) (*AuthFriendNotifyReply, error)
	NotifyTextChatMsg(ctx context.Context, req *TextChatNotifyRequest) (*TextChatNotifyReply, error)
}

// RegisterPeerNotifyServer wires srv into a gRPC server.
func RegisterPeerNotifyServer(s grpc.ServiceRegistrar, srv PeerNotifyServer) {
	s.RegisterService(&peerNotifyServiceDesc, srv)
}

func notifyAddFriendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddFriendNotifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerNotifyServer).NotifyAddFriend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodNotifyAddFriend}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerNotifyServer).NotifyAddFriend(ctx, req.(*AddFriendNotifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func notifyAuthFriendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AuthFriendNotifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerNotifyServer).NotifyAuthFriend(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodNotifyAuthFriend}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerNotifyServer).NotifyAuthFriend(ctx, req.(*AuthFriendNotifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func notifyTextChatMsgHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TextChatNotifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerNotifyServer).NotifyTextChatMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodNotifyTextChat}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerNotifyServer).NotifyTextChatMsg(ctx, req.(*TextChatNotifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var peerNotifyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PeerNotifyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "NotifyAddFriend", Handler: notifyAddFriendHandler},
		{MethodName: "NotifyAuthFriend", Handler: notifyAuthFriendHandler},
		{MethodName: "NotifyTextChatMsg", Handler: notifyTextChatMsgHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quill.peer.v1",
}

// PeerNotifyClient is the calling side of the service. Calls default to
// the JSON content-subtype via the pool's dial options.
type PeerNotifyClient interface {
	NotifyAddFriend(ctx context.Context, req *AddFriendNotifyRequest, opts ...grpc.CallOption) (*AddFriendNotifyReply, error)
	NotifyAuthFriend(ctx context.Context, req *AuthFriendNotifyRequest, opts ...grpc.CallOption) (*AuthFriendNotifyReply, error)
	NotifyTextChatMsg(ctx context.Context, req *TextChatNotifyRequest, opts ...grpc.CallOption) (*TextChatNotifyReply, error)
}

type peerNotifyClient struct {
	cc grpc.ClientConnInterface
}

// NewPeerNotifyClient returns a client bound to cc.
func NewPeerNotifyClient(cc grpc.ClientConnInterface) PeerNotifyClient {
	return &peerNotifyClient{cc: cc}
}

func (c *peerNotifyClient) NotifyAddFriend(ctx context.Context, req *AddFriendNotifyRequest, opts ...grpc.CallOption) (*AddFriendNotifyReply, error) {
	out := new(AddFriendNotifyReply)
	if err := c.cc.Invoke(ctx, MethodNotifyAddFriend, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *peerNotifyClient) NotifyAuthFriend(ctx context.Context, req *AuthFriendNotifyRequest, opts ...grpc.CallOption) (*AuthFriendNotifyReply, error) {
	out := new(AuthFriendNotifyReply)
	if err := c.cc.Invoke(ctx, MethodNotifyAuthFriend, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *peerNotifyClient) NotifyTextChatMsg(ctx context.Context, req *TextChatNotifyRequest, opts ...grpc.CallOption) (*TextChatNotifyReply, error) {
	out := new(TextChatNotifyReply)
	if err := c.cc.Invoke(ctx, MethodNotifyTextChat, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
