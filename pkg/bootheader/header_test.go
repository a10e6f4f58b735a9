package bootheader_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/errors"
)

func TestDecode(t *testing.T) {
	t.Run("ordinary disc", func(t *testing.T) {
		raw := bootheader.Encode(bootheader.Header{
			Name:          "CRAZY TAXI",
			ProductNumber: "MK-51035",
			Disc:          "1/2",
			Region:        "JUE",
			Version:       "V1.004",
			ReleaseDate:   "20000126",
			CRC:           "7FDC",
			VGA:           true,
		})

		h, err := bootheader.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "CRAZY TAXI", h.Name)
		assert.Equal(t, "MK-51035", h.ProductNumber)
		assert.Equal(t, "1/2", h.Disc)
		assert.Equal(t, "JUE", h.Region)
		assert.Equal(t, "V1.004", h.Version)
		assert.Equal(t, "20000126", h.ReleaseDate)
		assert.Equal(t, "7FDC", h.CRC)
		assert.True(t, h.VGA)
		assert.Equal(t, bootheader.None, h.Special)
	})

	t.Run("blank disc numbers read as single disc", func(t *testing.T) {
		raw := bootheader.Encode(bootheader.Header{Name: "X"})
		h, err := bootheader.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "1/1", h.Disc)
		assert.False(t, h.VGA)
	})

	t.Run("code breaker", func(t *testing.T) {
		raw := bootheader.Encode(bootheader.Header{Name: "CodeBreaker", Version: "V1.000", ReleaseDate: "20000627"})
		copy(raw[0x25:0x2B], "FCD   ")
		copy(raw[0x60:0x70], "PELICAN.BIN     ")

		h, err := bootheader.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, bootheader.CodeBreaker, h.Special)
		assert.Equal(t, "1/1", h.Disc)
	})

	t.Run("nul terminated field", func(t *testing.T) {
		raw := bootheader.Encode(bootheader.Header{Name: "SONIC"})
		copy(raw[0x80:], "SONIC\x00garbage")
		h, err := bootheader.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "SONIC", h.Name)
	})

	t.Run("rejects short or foreign blocks", func(t *testing.T) {
		_, err := bootheader.Decode(make([]byte, 10))
		assert.Error(t, err)

		raw := bootheader.Encode(bootheader.Header{Name: "X"})
		copy(raw, "SEGA SEGASATURN ")
		_, err = bootheader.Decode(raw)
		assert.Error(t, err)
	})
}

func TestFind(t *testing.T) {
	block := bootheader.Encode(bootheader.Header{Name: "SHENMUE", Disc: "2/4"})

	t.Run("marker after padding", func(t *testing.T) {
		data := append(bytes.Repeat([]byte{0xAA}, 5000), block...)
		h, off, err := bootheader.Find(context.Background(), bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int64(5000), off)
		assert.Equal(t, "SHENMUE", h.Name)
		assert.Equal(t, "2/4", h.Disc)
	})

	t.Run("marker straddles a chunk boundary", func(t *testing.T) {
		pad := (1 << 20) - 10
		data := append(bytes.Repeat([]byte{0}, pad), block...)
		h, off, err := bootheader.Find(context.Background(), bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, int64(pad), off)
		assert.Equal(t, "SHENMUE", h.Name)
	})

	t.Run("no marker", func(t *testing.T) {
		_, _, err := bootheader.Find(context.Background(), strings.NewReader("nothing here"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := bootheader.Find(ctx, bytes.NewReader(block))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProvisional(t *testing.T) {
	h := bootheader.Provisional("Soul Calibur")
	assert.Equal(t, "Soul Calibur", h.Name)
	assert.Equal(t, "?/?", h.Disc)
	assert.Empty(t, h.ProductNumber)
}
