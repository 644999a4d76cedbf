package response

import (
	"testing"

	"go-gin-gorm-iam/internal/domain"
)

func TestCodeForKind(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindNotFound, 404},
		{domain.KindUnauthenticated, 401},
		{domain.KindInvalidRole, 400},
		{domain.KindInvalidArgument, 400},
		{domain.KindConflict, 409},
		{domain.KindExpired, 410},
		{domain.KindPreconditionFailed, 412},
		{domain.KindInvalidOTP, 422},
		{domain.KindInternal, 500},
	}
	for _, tt := range tests {
		if got := CodeForKind(tt.kind); got != tt.want {
			t.Errorf("CodeForKind(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestErrorDefaultsMessage(t *testing.T) {
	r := Error(CodeConflict, "")
	if r.Msg != "Conflict" || r.Data == nil {
		t.Errorf("Error() = %+v", r)
	}
	if r := Error(CodeConflict, "email exists"); r.Msg != "email exists" {
		t.Errorf("Error(custom) msg = %q", r.Msg)
	}
}
