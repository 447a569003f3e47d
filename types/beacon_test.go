package types

import (
	"testing"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/stretchr/testify/require"
)

func TestParseBeaconID(t *testing.T) {
	id, err := ParseBeaconID("6209536")
	require.NoError(t, err)
	require.Equal(t, IDSlot, id.Kind())
	slot, ok := id.Slot()
	require.True(t, ok)
	require.Equal(t, uint64(6209536), slot)
	require.Equal(t, "6209536", id.String())

	id, err = ParseBeaconID("finalized")
	require.NoError(t, err)
	require.Equal(t, IDTag, id.Kind())
	_, ok = id.Slot()
	require.False(t, ok)
	require.Equal(t, "finalized", id.String())

	rootHex := "0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95"
	id, err = ParseBeaconID(rootHex)
	require.NoError(t, err)
	require.Equal(t, IDRoot, id.Kind())
	require.Equal(t, rootHex, id.String())

	_, err = ParseBeaconID("0x1234")
	require.ErrorIs(t, err, ErrDecode)
	_, err = ParseBeaconID("0xzz")
	require.ErrorIs(t, err, ErrDecode)
}

func TestRootIDString(t *testing.T) {
	var root zrntcommon.Root
	root[0], root[31] = 0xab, 0x01
	require.Equal(t, "0xab00000000000000000000000000000000000000000000000000000000000001", RootID(root).String())
	require.Equal(t, "head", TagID("head").String())
	require.Equal(t, "0", SlotID(0).String())
}

func TestSchemaForSlot(t *testing.T) {
	require.Equal(t, SchemaBellatrix, SchemaForSlot(0))
	require.Equal(t, SchemaBellatrix, SchemaForSlot(194047*32))
	require.Equal(t, SchemaBellatrix, SchemaForSlot(194048*32-1))
	require.Equal(t, SchemaCapella, SchemaForSlot(194048*32))
	require.Equal(t, SchemaCapella, SchemaForSlot(194048*32+1))
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("capella")
	require.NoError(t, err)
	require.Equal(t, SchemaCapella, s)
	require.Equal(t, "capella", s.String())

	s, err = ParseSchema("bellatrix")
	require.NoError(t, err)
	require.Equal(t, SchemaBellatrix, s)

	_, err = ParseSchema("deneb")
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.ErrorIs(t, err, ErrDecode)
}
