package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseData(t *testing.T) {
	data, err := parseData("0x03e803000000000000", "auto")
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0xe8, 3, 0, 0, 0, 0, 0, 0}, data)

	// "3Bxs3ztTT2GbRVeo" 不是合法 hex，auto 模式回退到 base58
	data, err = parseData("3Bxs3ztTT2GbRVeo", "auto")
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 0, 0, 0x2f, 0x68, 0x59, 0, 0, 0, 0}, data)

	data, err = parseData("", "hex")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = parseData("", "base58")
	assert.Error(t, err)

	_, err = parseData("zz", "hex")
	assert.Error(t, err)

	_, err = parseData("0OIl", "auto")
	assert.Error(t, err)

	_, err = parseData("00", "utf8")
	assert.Error(t, err)
}
