package catalog_test

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gdcard/pkg/bootheader"
	"github.com/agentstation/gdcard/pkg/catalog"
)

func newEntry(name, serial, disc string) *catalog.Entry {
	e := catalog.NewEntry(catalog.DefaultLimits)
	e.SetName(name)
	if serial != "" || disc != "" {
		e.SetHeader(&bootheader.Header{Name: name, ProductNumber: serial, Disc: disc})
	}
	return e
}

func TestEntryName(t *testing.T) {
	t.Run("long names are capped and diacritics removed", func(t *testing.T) {
		e := catalog.NewEntry(catalog.DefaultLimits)
		long := "Pokémon " + strings.Repeat("x", 60)
		e.SetName(long)
		assert.Len(t, []rune(e.Name()), catalog.DefaultLimits.NameMax)
		assert.True(t, strings.HasPrefix(e.Name(), "Pokemon "))
	})

	t.Run("underscores become spaces and are trimmed", func(t *testing.T) {
		e := catalog.NewEntry(catalog.DefaultLimits)
		e.SetName("  Crazy_Taxi_2_ ")
		assert.Equal(t, "Crazy Taxi 2", e.Name())
	})

	t.Run("custom limit", func(t *testing.T) {
		e := catalog.NewEntry(catalog.Limits{NameMax: 5})
		e.SetName("Shenmue")
		assert.Equal(t, "Shenm", e.Name())
	})
}

func TestEntrySerial(t *testing.T) {
	e := catalog.NewEntry(catalog.DefaultLimits)
	e.SetHeader(&bootheader.Header{ProductNumber: "T-1234567890XYZ"})
	assert.Equal(t, "T-12345678", e.Serial(), "falls back to the header, capped")

	e.SetSerial(" MK-51000 ")
	assert.Equal(t, "MK-51000", e.Serial())
}

func TestEntryLocation(t *testing.T) {
	for _, slot := range []int{0, 5} {
		e := catalog.NewEntry(catalog.DefaultLimits)
		e.SetSlot(slot)
		e.SetLocation(catalog.LocationMedia)
		assert.Equal(t, catalog.LocationMedia, e.Location())

		e.SetError("broken")
		assert.Equal(t, catalog.LocationError, e.Location())

		e.SetError("")
		assert.Equal(t, catalog.LocationMedia, e.Location())
	}
}

func TestEntryMenu(t *testing.T) {
	menu := newEntry("openMenu", "", "")
	assert.True(t, menu.IsMenu())
	assert.Equal(t, catalog.OpenMenu, menu.MenuKind())
	menu.SetSlot(7)
	assert.Equal(t, 1, menu.Slot())

	assert.False(t, newEntry("Openmenu", "", "").IsMenu(), "reserved names are case-sensitive")
	assert.True(t, newEntry("GDMENU", "", "").IsMenu())

	game := newEntry("Sonic", "", "")
	game.SetSlot(7)
	assert.Equal(t, 7, game.Slot())
}

func TestEntryFiles(t *testing.T) {
	e := catalog.NewEntry(catalog.DefaultLimits)
	e.SetFiles([]string{"disc.gdi", "track01.bin", "TRACK01.BIN", ""})
	assert.Equal(t, []string{"disc.gdi", "track01.bin"}, e.Files())
	e.AddFile("Disc.GDI")
	assert.Len(t, e.Files(), 2)
	assert.True(t, e.IsGDI())
	assert.Equal(t, "disc.gdi", e.PrimaryFile())
}

func TestEntryID(t *testing.T) {
	e := catalog.NewEntry(catalog.DefaultLimits)
	id := e.ID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, e.ID())
	assert.NotEqual(t, id, catalog.NewEntry(catalog.DefaultLimits).ID())
}

func TestSameGame(t *testing.T) {
	a := newEntry("Shenmue", "MK-51059", "1/4")
	b := newEntry("Shenmue copy", "MK-51059", "1/4")
	c := newEntry("Shenmue", "MK-51059", "2/4")
	d := newEntry("Unknown", "", "1/4")
	unknown := newEntry("Packed", "MK-51059", "?/?")

	assert.True(t, a.SameGame(b))
	assert.False(t, a.SameGame(c))
	assert.False(t, a.SameGame(d))
	assert.False(t, a.SameGame(unknown))
	assert.False(t, a.SameGame(nil))
}

func TestEntrySubscribe(t *testing.T) {
	e := catalog.NewEntry(catalog.DefaultLimits)
	var fields []string
	cancel := e.Subscribe(func(c catalog.Change) { fields = append(fields, c.Field) })

	e.SetName("A")
	e.SetSlot(3)
	cancel()
	e.SetName("B")

	assert.Equal(t, []string{catalog.FieldName, catalog.FieldSlot}, fields)
	assert.Zero(t, e.Observers())
}

func TestEntryJSON(t *testing.T) {
	e := catalog.NewEntry(catalog.DefaultLimits)
	e.SetName("Jet Set Radio")
	e.SetSerial("MK-51058")
	e.SetFiles([]string{"disc.gdi", "track01.bin"})
	e.SetSlot(4)
	e.SetLength(1234)
	e.SetFormat(catalog.Archived)
	e.SetSourcePath("/games/jsr.7z")
	e.SetHeader(&bootheader.Header{Name: "JET SET RADIO", Disc: "1/1", VGA: true})
	e.SetFolder("/sd/04")

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]any{"Bytes": float64(1234)}, raw["Length"])
	assert.Equal(t, float64(4), raw["SdNumber"])
	assert.Equal(t, float64(1), raw["FileFormat"])
	assert.NotContains(t, raw, "Folder")
	assert.NotContains(t, raw, "ErrorState")

	back := catalog.NewEntry(catalog.DefaultLimits)
	require.NoError(t, json.Unmarshal(data, back))
	assert.Equal(t, "Jet Set Radio", back.Name())
	assert.Equal(t, "MK-51058", back.Serial())
	assert.Equal(t, e.Files(), back.Files())
	assert.Equal(t, 4, back.Slot())
	assert.Equal(t, int64(1234), back.Length())
	assert.Equal(t, catalog.Archived, back.Format())
	assert.Equal(t, "/games/jsr.7z", back.SourcePath())
	require.NotNil(t, back.Header())
	assert.True(t, back.Header().VGA)
	assert.Empty(t, back.Folder())
}

func TestParseMenuKind(t *testing.T) {
	k, err := catalog.ParseMenuKind("OPENMENU")
	require.NoError(t, err)
	assert.Equal(t, catalog.OpenMenu, k)

	k, err = catalog.ParseMenuKind("")
	require.NoError(t, err)
	assert.Equal(t, catalog.MenuNone, k)

	_, err = catalog.ParseMenuKind("bootloader")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	t.Run("subscriptions follow membership", func(t *testing.T) {
		s := catalog.NewStore()
		a, b := newEntry("A", "", ""), newEntry("B", "", "")
		s.Add(a)
		s.Insert(0, b)
		assert.Equal(t, []*catalog.Entry{b, a}, s.Entries())
		assert.True(t, s.Subscribed(a))
		assert.Equal(t, 1, a.Observers())

		c := newEntry("C", "", "")
		old, ok := s.Set(1, c)
		require.True(t, ok)
		assert.Same(t, a, old)
		assert.False(t, s.Subscribed(a))
		assert.Zero(t, a.Observers())
		assert.True(t, s.Subscribed(c))

		assert.True(t, s.Remove(b))
		assert.Zero(t, b.Observers())
		assert.False(t, s.Remove(b))

		s.Clear()
		assert.Zero(t, c.Observers())
		assert.Zero(t, s.Len())
	})

	t.Run("changes are relayed", func(t *testing.T) {
		s := catalog.NewStore()
		var changes []catalog.Change
		s.OnChanged(func(c catalog.Change) { changes = append(changes, c) })

		e := newEntry("A", "", "")
		s.Add(e)
		e.SetLength(10)
		require.Len(t, changes, 1)
		assert.Equal(t, catalog.FieldLength, changes[0].Field)
		assert.Equal(t, int64(10), s.TotalLength())

		s.Remove(e)
		e.SetLength(20)
		assert.Len(t, changes, 1)
	})

	t.Run("added and removed hooks", func(t *testing.T) {
		s := catalog.NewStore()
		var added, removed int
		s.OnAdded(func(*catalog.Entry) { added++ })
		s.OnRemoved(func(*catalog.Entry) { removed++ })
		e := newEntry("A", "", "")
		s.Add(e)
		s.Add(newEntry("B", "", ""))
		_, _ = s.RemoveAt(0)
		assert.Equal(t, 2, added)
		assert.Equal(t, 1, removed)
	})

	t.Run("menu lookup", func(t *testing.T) {
		s := catalog.NewStore(newEntry("Sonic", "", ""), newEntry("gdMenu", "", ""), newEntry("GDMENU", "", ""))
		assert.Equal(t, 2, s.MenuCount())
		assert.Equal(t, "gdMenu", s.MenuEntry().Name())
	})

	t.Run("sort puts the menu first", func(t *testing.T) {
		s := catalog.NewStore(
			newEntry("shenmue", "MK-1", "2/4"),
			newEntry("Crazy Taxi", "", ""),
			newEntry("openMenu", "", ""),
			newEntry("Shenmue", "MK-1", "1/4"),
		)
		s.Sort()
		var names []string
		for _, e := range s.Entries() {
			names = append(names, e.Name()+" "+e.Disc())
		}
		assert.Equal(t, []string{"openMenu ?/?", "Crazy Taxi ?/?", "Shenmue 1/4", "shenmue 2/4"}, names)
	})

	t.Run("search matches display and header names", func(t *testing.T) {
		e := newEntry("Bio 2", "", "")
		e.SetHeader(&bootheader.Header{Name: "RESIDENT EVIL 2"})
		s := catalog.NewStore(e, newEntry("Sonic Adventure", "", ""))
		assert.Len(t, s.Search("resident"), 1)
		assert.Len(t, s.Search("SONIC"), 1)
		assert.Len(t, s.Search(""), 2)
		assert.Empty(t, s.Search("zelda"))
	})
}
