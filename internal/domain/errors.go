package domain

import (
	"errors"
	"fmt"
)

// Category sentinels, used with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Agent call failures. Every failed agent call wraps exactly one of these.
var (
	ErrConnectionRefused = fmt.Errorf("agent service unreachable: connection refused")
	ErrFetchFailed       = fmt.Errorf("agent fetch failed")
	ErrMalformedStream   = fmt.Errorf("agent stream malformed")
	ErrHTTPStatus        = fmt.Errorf("agent returned non-success status")
	ErrCircuitOpen       = fmt.Errorf("agent circuit open")
)

// Sentinel errors for the rest of the domain layer.
var (
	ErrConfigLoad           = fmt.Errorf("failed to load configuration")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrInvalidPayload       = fmt.Errorf("structured payload invalid")
	ErrRateLimit            = fmt.Errorf("rate limit exceeded")

	// Gateway / RPC errors.
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Agent.Call")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "agent", "store"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsAgentFailure reports whether err is one of the per-agent call failures.
func IsAgentFailure(err error) bool {
	for _, sentinel := range []error{
		ErrConnectionRefused, ErrFetchFailed, ErrMalformedStream,
		ErrHTTPStatus, ErrTimeout, ErrCircuitOpen,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ErrorCode is a machine-parseable error category for monitoring and API clients.
type ErrorCode string

const (
	CodeUnknown              ErrorCode = "UNKNOWN"
	CodeConnectionRefused    ErrorCode = "AGENT_CONNECTION_REFUSED"
	CodeFetchFailed          ErrorCode = "AGENT_FETCH_FAILED"
	CodeMalformedStream      ErrorCode = "AGENT_MALFORMED_STREAM"
	CodeHTTPStatus           ErrorCode = "AGENT_HTTP_STATUS"
	CodeCircuitOpen          ErrorCode = "AGENT_CIRCUIT_OPEN"
	CodeConfigLoad           ErrorCode = "CONFIG_LOAD"
	CodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	CodeInvalidPayload       ErrorCode = "INVALID_PAYLOAD"
	CodeRateLimit            ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid          ErrorCode = "AUTH_INVALID"
	CodeGatewayAuth          ErrorCode = "GATEWAY_AUTH"
	CodeRPCMethodNotFound    ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload    ErrorCode = "RPC_INVALID_PAYLOAD"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeAgentNotFound  ErrorCode = "AGENT_NOT_FOUND"
	CodeAgentTimeout   ErrorCode = "AGENT_TIMEOUT"
	CodeStoreLimit     ErrorCode = "STORE_LIMIT"
	CodeFormInvalid    ErrorCode = "FORM_INVALID"
	CodeScenarioAbsent ErrorCode = "SCENARIO_NOT_FOUND"

	// Category error codes: fallback codes when no subsystem-specific code matches.
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeDuplicate     ErrorCode = "DUPLICATE"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeLimitReached  ErrorCode = "LIMIT_REACHED"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:      CodeNotFound,
	ErrDuplicate:     CodeDuplicate,
	ErrTimeout:       CodeTimeout,
	ErrLimitReached:  CodeLimitReached,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,

	ErrConnectionRefused:    CodeConnectionRefused,
	ErrFetchFailed:          CodeFetchFailed,
	ErrMalformedStream:      CodeMalformedStream,
	ErrHTTPStatus:           CodeHTTPStatus,
	ErrCircuitOpen:          CodeCircuitOpen,
	ErrConfigLoad:           CodeConfigLoad,
	ErrConversationNotFound: CodeConversationNotFound,
	ErrInvalidPayload:       CodeInvalidPayload,
	ErrRateLimit:            CodeRateLimit,
	ErrAuthInvalid:          CodeAuthInvalid,
	ErrGatewayAuthFailed:    CodeGatewayAuth,
	ErrRPCMethodNotFound:    CodeRPCMethodNotFound,
	ErrRPCInvalidPayload:    CodeRPCInvalidPayload,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"agent":    CodeAgentNotFound,
		"store":    CodeConversationNotFound,
		"scenario": CodeScenarioAbsent,
	},
	ErrTimeout: {
		"agent": CodeAgentTimeout,
	},
	ErrLimitReached: {
		"store": CodeStoreLimit,
	},
	ErrInvalidInput: {
		"form": CodeFormInvalid,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// DomainErrors with a SubSystem resolve through subSystemCodeMap first.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	// Specific sentinels before categories so wrapped timeouts keep their agent code.
	for _, sentinel := range []error{
		ErrConnectionRefused, ErrFetchFailed, ErrMalformedStream, ErrHTTPStatus,
		ErrCircuitOpen, ErrConversationNotFound, ErrInvalidPayload, ErrGatewayAuthFailed,
	} {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
