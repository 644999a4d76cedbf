package response

import "go-gin-gorm-iam/internal/domain"

// 常见业务 系统级错误码（直接基于 HTTP 语义）
const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409
	CodeGone               = 410
	CodePreconditionFailed = 412
	CodeUnprocessable      = 422
	CodeTooManyRequests    = 429
	CodeServerError        = 500
	CodeTimeout            = 504
)

// CodeMsgMap 用于集中管理 code - msg
var CodeMsgMap = map[int]string{
	CodeOK:                 "OK",
	CodeBadRequest:         "Bad Request",
	CodeUnauthorized:       "Unauthorized",
	CodeForbidden:          "Forbidden",
	CodeNotFound:           "Not Found",
	CodeConflict:           "Conflict",
	CodeGone:               "Expired",
	CodePreconditionFailed: "Precondition Failed",
	CodeUnprocessable:      "Unprocessable",
	CodeTooManyRequests:    "Too Many Requests",
	CodeServerError:        "Internal Server Error",
	CodeTimeout:            "Timeout",
}

// CodeForKind 业务错误分类 -> 响应码
func CodeForKind(k domain.Kind) int {
	switch k {
	case domain.KindNotFound:
		return CodeNotFound
	case domain.KindUnauthenticated:
		return CodeUnauthorized
	case domain.KindInvalidRole, domain.KindInvalidArgument:
		return CodeBadRequest
	case domain.KindConflict:
		return CodeConflict
	case domain.KindExpired:
		return CodeGone
	case domain.KindPreconditionFailed:
		return CodePreconditionFailed
	case domain.KindInvalidOTP:
		return CodeUnprocessable
	}
	return CodeServerError
}
