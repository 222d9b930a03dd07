package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBiQSendAndDeliverAreFIFO(t *testing.T) {
	b := NewBiQ()

	b.Send(Envelope{MsgType: []byte("a")})
	b.Send(Envelope{MsgType: []byte("b")})

	first, ok := b.dequeueOutbound()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), first.MsgType)

	second, ok := b.dequeueOutbound()
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), second.MsgType)

	_, ok = b.dequeueOutbound()
	assert.False(t, ok)
}

func TestBiQDeliverAndTryRecv(t *testing.T) {
	b := NewBiQ()

	_, ok := b.TryRecv()
	assert.False(t, ok)

	b.deliver(Envelope{MsgType: []byte("pong")})
	got, ok := b.TryRecv()
	assert.True(t, ok)
	assert.Equal(t, []byte("pong"), got.MsgType)
}
