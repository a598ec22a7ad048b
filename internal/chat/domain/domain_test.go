package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	errprocess "recruit_chat_service/pkg/err"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_OrderInsensitive(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.NotEqual(t, PairKey("a", "b"), PairKey("a", "c"))
}

func TestConversation_PeerAndParticipant(t *testing.T) {
	c := NewConversation("c1", "a", "b", time.Now())

	assert.True(t, c.HasParticipant("a"))
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("x"))
	assert.Equal(t, "b", c.Peer("a"))
	assert.Equal(t, "a", c.Peer("b"))
	assert.Equal(t, "", c.Peer("x"))
	assert.False(t, c.Blocked)
}

func TestConversation_CanSend(t *testing.T) {
	blocker := "a"
	c := NewConversation("c1", "a", "b", time.Now())
	c.Blocked = true
	c.BlockedBy = &blocker

	assert.True(t, c.CanSend("a", BlockPolicyAsymmetric))
	assert.False(t, c.CanSend("b", BlockPolicyAsymmetric))
	assert.False(t, c.CanSend("a", BlockPolicySymmetric))
	assert.False(t, c.CanSend("b", BlockPolicySymmetric))

	c.Blocked = false
	c.BlockedBy = nil
	assert.True(t, c.CanSend("b", BlockPolicySymmetric))
}

func TestParseBlockPolicy(t *testing.T) {
	assert.Equal(t, BlockPolicySymmetric, ParseBlockPolicy("Symmetric"))
	assert.Equal(t, BlockPolicyAsymmetric, ParseBlockPolicy("asymmetric"))
	assert.Equal(t, BlockPolicyAsymmetric, ParseBlockPolicy("whatever"))
}

func TestMessageBody_Validate(t *testing.T) {
	cases := []struct {
		name string
		body MessageBody
		want error
	}{
		{"text ok", MessageBody{Content: "hi"}, nil},
		{"empty", MessageBody{}, ErrEmptyMessage},
		{"image needs media", MessageBody{Content: "look", Type: MessageTypeImage}, ErrMediaRequired},
		{"image ok", MessageBody{MediaRef: "img/1.png", Type: MessageTypeImage}, nil},
		{"text with media only", MessageBody{MediaRef: "doc.pdf"}, nil},
		{"bad type", MessageBody{Content: "hi", Type: "sticker"}, ErrInvalidMessageType},
		{"too long", MessageBody{Content: strings.Repeat("字", 11)}, ErrContentTooLong},
	}
	for _, tc := range cases {
		err := tc.body.Normalize().Validate(10)
		if tc.want == nil {
			assert.NoError(t, err, tc.name)
			continue
		}
		assert.True(t, errors.Is(err, tc.want), tc.name)
		assert.Equal(t, errprocess.CodeValidation, errprocess.CodeOf(err), tc.name)
	}
}

func TestNewMessageID_Ordered(t *testing.T) {
	prev := NewMessageID()
	for i := 0; i < 100; i++ {
		next := NewMessageID()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestFail_HidesInternal(t *testing.T) {
	resp := Fail(SendMessage, "r1", errors.New("mongo exploded"))
	assert.False(t, resp.Success)
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, errprocess.CodeInternal, resp.Error.Code)
	assert.Equal(t, errprocess.GenericInternalMessage, resp.Error.Message)

	resp = Fail(SendMessage, "", ErrSendBlocked)
	assert.Equal(t, errprocess.CodeForbidden, resp.Error.Code)
	assert.Equal(t, ErrSendBlocked.Message, resp.Error.Message)
}
