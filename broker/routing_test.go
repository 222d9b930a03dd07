package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterClientExclusivity(t *testing.T) {
	rt := newRoutingTables()

	_, err := rt.registerClient([]byte("x"), [][]byte{[]byte("M")}, nil, NewBiQ())
	assert.NoError(t, err)

	t.Run("a second client cannot claim an owned msg type", func(t *testing.T) {
		_, err := rt.registerClient([]byte("y"), [][]byte{[]byte("M"), []byte("N")}, nil, NewBiQ())
		assert.Error(t, err)

		_, ok := rt.ownerOf([]byte("N"))
		assert.False(t, ok, "rejected registration must not leave partial state")

		assert.NotContains(t, rt.clients, "y")
	})

	t.Run("duplicate client id is rejected", func(t *testing.T) {
		_, err := rt.registerClient([]byte("x"), nil, nil, NewBiQ())
		assert.Error(t, err)
	})
}

func TestRegisterClientReportsNewSubscriptions(t *testing.T) {
	rt := newRoutingTables()

	newSubs, err := rt.registerClient([]byte("x"), nil, [][]byte{[]byte("block")}, NewBiQ())
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("block")}, newSubs)

	newSubs, err = rt.registerClient([]byte("y"), nil, [][]byte{[]byte("block")}, NewBiQ())
	assert.NoError(t, err)
	assert.Empty(t, newSubs, "subscription already non-empty must not be reported again")
}

func TestSubscribersFanOut(t *testing.T) {
	rt := newRoutingTables()
	biqX := NewBiQ()
	biqY := NewBiQ()

	_, err := rt.registerClient([]byte("x"), nil, [][]byte{[]byte("block")}, biqX)
	assert.NoError(t, err)
	_, err = rt.registerClient([]byte("y"), nil, [][]byte{[]byte("block")}, biqY)
	assert.NoError(t, err)

	subs, ok := rt.subscribers([]byte("block"))
	assert.True(t, ok)
	assert.Len(t, subs, 2)
}

func TestRemoveClientDropsIndexes(t *testing.T) {
	rt := newRoutingTables()
	_, err := rt.registerClient([]byte("x"), [][]byte{[]byte("M")}, [][]byte{[]byte("block")}, NewBiQ())
	assert.NoError(t, err)

	rt.removeClient([]byte("x"))

	_, ok := rt.ownerOf([]byte("M"))
	assert.False(t, ok)
	_, ok = rt.subscribers([]byte("block"))
	assert.False(t, ok)
}
