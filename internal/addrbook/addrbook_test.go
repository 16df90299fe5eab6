package addrbook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("embedded table", func(t *testing.T) {
		book, err := Load(nil)
		require.NoError(t, err)

		addr, err := book.Resolve(31337)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xB7f8BC63BbcaD18155201308C8f3540b07f84F5e"), addr)
	})

	t.Run("override wins over embedded entry", func(t *testing.T) {
		override := "0x1111111111111111111111111111111111111111"
		book, err := Load(map[uint64]string{31337: override})
		require.NoError(t, err)

		addr, err := book.Resolve(31337)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(override), addr)
	})

	t.Run("override adds a new network", func(t *testing.T) {
		override := "0x2222222222222222222222222222222222222222"
		book, err := Load(map[uint64]string{11155111: override})
		require.NoError(t, err)

		addr, err := book.Resolve(11155111)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(override), addr)
	})

	t.Run("invalid override address", func(t *testing.T) {
		_, err := Load(map[uint64]string{1: "not-an-address"})
		assert.Error(t, err)
	})
}

func TestResolveUnknownNetwork(t *testing.T) {
	book, err := Load(nil)
	require.NoError(t, err)

	_, err = book.Resolve(424242)
	assert.ErrorIs(t, err, ErrUnresolvedNetwork)
}
