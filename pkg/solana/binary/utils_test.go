package binary

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	for i := range key {
		key[i] = byte(i)
	}

	buf := make([]byte, 4+8+32)
	var offset int
	PutUint32(buf[offset:], 7, &offset)
	PutUint64(buf[offset:], 1<<40, &offset)
	PutKey32(buf[offset:], key, &offset)
	assert.Equal(t, len(buf), offset)
	assert.Equal(t, []byte{7, 0, 0, 0}, buf[:4])

	var (
		command  uint32
		lamports uint64
		owner    ed25519.PublicKey
	)
	offset = 0
	GetUint32(buf[offset:], &command, &offset)
	GetUint64(buf[offset:], &lamports, &offset)
	GetKey32(buf[offset:], &owner, &offset)
	assert.Equal(t, len(buf), offset)
	assert.EqualValues(t, 7, command)
	assert.EqualValues(t, 1<<40, lamports)
	assert.Equal(t, key, owner)

	buf[4+8] = 0xff
	assert.EqualValues(t, 0, owner[0])
}
