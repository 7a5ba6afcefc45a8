package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("contact %s not found", "abc")
	wrapped := fmt.Errorf("resolve: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, "contact abc not found", Message(wrapped))
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := errors.New("21211 invalid To number")
	err := Upstream(cause, "provider rejected message")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Contains(t, err.Error(), "21211")
	assert.Equal(t, "provider rejected message", Message(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "", Message(nil))
}
