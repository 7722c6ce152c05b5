package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", Transient("write", errors.New("reset")), true},
		{"plain error", errors.New("boom"), true},
		{"permission", Permission("read", errors.New("unauthorized")), false},
		{"decode", Decode("snapshot", errors.New("bad json")), false},
		{"bad request", fmt.Errorf("%w: malformed key", ErrBadRequest), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}
