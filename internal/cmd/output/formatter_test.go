package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
)

func sampleEntries() Entries {
	menu := catalog.NewEntry(catalog.DefaultLimits)
	menu.SetName("GDMENU")
	menu.SetSlot(1)
	menu.SetLocation(catalog.LocationMedia)

	game := catalog.NewEntry(catalog.DefaultLimits)
	game.SetName("Crazy Taxi")
	game.SetHeader(&bootheader.Header{Name: "CRAZY TAXI", ProductNumber: "MK-51035", Disc: "1/1"})
	game.SetLength(3 * 1024 * 1024)
	game.SetLocation(catalog.LocationOther)

	return FromCatalog([]*catalog.Entry{menu, game}, true)
}

func TestFormatters(t *testing.T) {
	entries := sampleEntries()

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, entries))
		out := buf.String()
		assert.Contains(t, out, "Crazy Taxi")
		assert.Contains(t, out, "3.0 MiB")
		assert.Contains(t, out, "SD Card")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatJSON).Format(&buf, entries))
		assert.Contains(t, buf.String(), `"name": "Crazy Taxi"`)
		assert.Contains(t, buf.String(), `"ProductNumber": "MK-51035"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatYAML).Format(&buf, entries))
		assert.Contains(t, buf.String(), "name: Crazy Taxi")
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewFormatter(FormatTable).Format(&buf, map[string]int{"placed": 2}))
		assert.Contains(t, buf.String(), `"placed": 2`)
	})
}

func TestFromCatalog(t *testing.T) {
	entries := sampleEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Slot)
	assert.Equal(t, "?/?", entries[0].Disc)
	assert.Equal(t, "1/1", entries[1].Disc)
	assert.Equal(t, "Other", entries[1].Location)

	rows := entries.Table().Rows
	assert.Equal(t, "1", rows[0][0])
	assert.Equal(t, "-", rows[1][0])
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	assert.Equal(t, "512 B", Size(512))
	assert.Equal(t, "1.5 KiB", Size(1536))
	assert.Equal(t, "1.0 GiB", Size(1<<30))
}
