package domain

import "errors"

// Kind 业务错误分类，传输层据此映射响应码
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthenticated
	KindInvalidRole
	KindConflict
	KindExpired
	KindInvalidOTP
	KindPreconditionFailed
	KindInvalidArgument
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindNotFound:           "not found",
	KindUnauthenticated:    "unauthenticated",
	KindInvalidRole:        "invalid role",
	KindConflict:           "conflict",
	KindExpired:            "expired",
	KindInvalidOTP:         "invalid otp",
	KindPreconditionFailed: "precondition failed",
	KindInvalidArgument:    "invalid argument",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is 只比较 Kind，errors.Is(err, ErrNotFound) 对任意 NotFound 成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// 哨兵，仅用于 errors.Is
var (
	ErrInternal           = &Error{Kind: KindInternal}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrInvalidRole        = &Error{Kind: KindInvalidRole}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrExpired            = &Error{Kind: KindExpired}
	ErrInvalidOTP         = &Error{Kind: KindInvalidOTP}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
)

func NotFound(msg string) error           { return &Error{Kind: KindNotFound, Msg: msg} }
func Unauthenticated(msg string) error    { return &Error{Kind: KindUnauthenticated, Msg: msg} }
func InvalidRole(msg string) error        { return &Error{Kind: KindInvalidRole, Msg: msg} }
func Conflict(msg string) error           { return &Error{Kind: KindConflict, Msg: msg} }
func Expired(msg string) error            { return &Error{Kind: KindExpired, Msg: msg} }
func InvalidOTP(msg string) error         { return &Error{Kind: KindInvalidOTP, Msg: msg} }
func PreconditionFailed(msg string) error { return &Error{Kind: KindPreconditionFailed, Msg: msg} }
func InvalidArgument(msg string) error    { return &Error{Kind: KindInvalidArgument, Msg: msg} }
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律视为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
