package protocol

// ErrorCode is the numeric error carried in the "error" field of every
// reply payload. Codes are shared with the HTTP gateway so clients see a
// single error space; the node itself only produces the subset below the
// separator, but all codes are declared to keep the wire values stable.
type ErrorCode int

const (
	CodeSuccess      ErrorCode = 0
	CodeJSON         ErrorCode = 1001 // payload did not parse
	CodeRPCFailed    ErrorCode = 1002 // a cross-node RPC returned non-OK
	CodeTokenInvalid ErrorCode = 1010 // login token mismatch
	CodeUIDInvalid   ErrorCode = 1011 // no such user / presence missing

	// Gateway-side codes, declared for wire stability.
	CodeVerifyExpired      ErrorCode = 1003
	CodeVerifyErr          ErrorCode = 1004
	CodeUserExists         ErrorCode = 1005
	CodePasswdErr          ErrorCode = 1006
	CodeEmailNotMatch      ErrorCode = 1007
	CodePasswdUpdateFailed ErrorCode = 1008
	CodePasswdInvalid      ErrorCode = 1009
)

func (c ErrorCode) String() string {
	switch c {
	case CodeSuccess:
		return "Success"
	case CodeJSON:
		return "JSONInvalid"
	case CodeRPCFailed:
		return "RPCFailed"
	case CodeVerifyExpired:
		return "VerifyExpired"
	case CodeVerifyErr:
		return "VerifyCodeErr"
	case CodeUserExists:
		return "UserExists"
	case CodePasswdErr:
		return "PasswdErr"
	case CodeEmailNotMatch:
		return "EmailNotMatch"
	case CodePasswdUpdateFailed:
		return "PasswdUpdateFailed"
	case CodePasswdInvalid:
		return "PasswdInvalid"
	case CodeTokenInvalid:
		return "TokenInvalid"
	case CodeUIDInvalid:
		return "UIDInvalid"
	default:
		return "Unknown"
	}
}
