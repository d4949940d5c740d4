package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{530, ErrNotLoggedIn},
		{550, ErrNotFound},
		{450, ErrNotFound},
		{502, ErrNotImplemented},
		{504, ErrNotImplemented},
		{553, ErrPermanent},
		{421, ErrTransient},
		{226, nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCode(tt.code))
		})
	}
}

func TestClassify_TextprotoReply(t *testing.T) {
	err := classify(&textproto.Error{Code: 550, Msg: "No such file"})

	var re *ReplyError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 550, re.Code)
	assert.Equal(t, "No such file", re.Message)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConnectionLost(err))
	assert.Contains(t, err.Error(), "550")
}

func TestClassify_WrappedTextprotoReply(t *testing.T) {
	inner := &textproto.Error{Code: 530, Msg: "Login incorrect."}
	err := classify(fmt.Errorf("login: %w", inner))

	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClassify_ConnectionFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"eof", io.EOF},
		{"unexpected eof", io.ErrUnexpectedEOF},
		{"closed", net.ErrClosed},
		{"op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.True(t, IsConnectionLost(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	plain := errors.New("something else")

	assert.Equal(t, plain, classify(plain))
	assert.NoError(t, classify(nil))
}

func TestNewReplyError(t *testing.T) {
	err := NewReplyError(450, "busy")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "transport: 450 busy", err.Error())
}
