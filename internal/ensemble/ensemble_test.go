package ensemble

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrajectories() []Trajectory {
	return []Trajectory{
		{{"x": 1.0, "reward": 0.0, "image row": "a.png"}, {"x": 10.0, "reward": 1.0, "image row": "b.png"}},
		{{"x": 2.0, "reward": 0.0, "image row": "c.png"}},
		{{"x": 3.0, "reward": 0.0, "image row": "d.png"}, {"x": 30.0, "reward": 2.0}, {"x": 300.0, "reward": 3.0}},
	}
}

func TestEvent_Float(t *testing.T) {
	e := Event{
		"f":      1.5,
		"i":      3,
		"n":      json.Number("2.25"),
		"flag":   true,
		"name":   "car",
		"badnum": json.Number("x"),
	}

	tests := []struct {
		name   string
		key    string
		want   float64
		wantOK bool
	}{
		{"Float", "f", 1.5, true},
		{"Int", "i", 3, true},
		{"Number", "n", 2.25, true},
		{"Bool", "flag", 0, false},
		{"String", "name", 0, false},
		{"BadNumber", "badnum", 0, false},
		{"Absent", "missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Float(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStore_VariableNamesAndMaxLength(t *testing.T) {
	s := NewStore([]string{"reward"})
	e := New("first", "", sampleTrajectories())

	assert.Equal(t, []string{"x"}, s.VariableNames(e))
	assert.True(t, s.HasVariable(e, "x"))
	assert.False(t, s.HasVariable(e, "reward"))
	assert.False(t, s.HasVariable(e, "image row"))
	assert.Equal(t, 3, s.MaxLength(e))
	assert.Equal(t, 0, s.MaxLength(nil))
	assert.Nil(t, s.VariableNames(New("empty", "", nil)))
}

func TestStore_VariableNamesSkipsEmptyTrajectories(t *testing.T) {
	trajs, err := ReadJSONL(strings.NewReader("null\n[]\n[{\"x\":1}]\n[{\"x\":2},{\"x\":3}]"))
	require.NoError(t, err)
	require.Len(t, trajs, 4)

	s := NewStore(nil)
	e := New("leading empty", "", trajs)

	assert.Equal(t, []string{"x"}, s.VariableNames(e))
	assert.True(t, s.HasVariable(e, "x"))

	_, ok := FirstEvent([]Trajectory{nil, {}})
	assert.False(t, ok)
}

func TestStore_ReplacePrimaryDoesNotTouchTrajectories(t *testing.T) {
	s := NewStore(nil)
	trajs := sampleTrajectories()
	e := New("first", "", trajs)

	s.ReplacePrimary(e)
	s.SetSecondary(New("second", "", nil))

	assert.Same(t, e, s.Primary())
	assert.NotNil(t, s.Secondary())
	assert.Equal(t, 10.0, trajs[0][1]["x"])

	s.ClearSecondary()
	assert.Nil(t, s.Secondary())
}

func TestJSONL_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleTrajectories()))

	got, err := ReadJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Len(t, got[2], 3)

	v, ok := got[2][2].Float("x")
	assert.True(t, ok)
	assert.Equal(t, 300.0, v)
}

func TestReadJSONL_SkipsInvalidLines(t *testing.T) {
	input := strings.Join([]string{
		`[{"x":1}]`,
		`not json`,
		``,
		`[{"x":2},{"x":3}]`,
	}, "\n")

	got, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestArchive_SaveLoad(t *testing.T) {
	dir := t.TempDir()

	a := NewArchive()
	first := New("first", "seed=1", sampleTrajectories())
	second := New("second", "seed=2", sampleTrajectories()[:1])
	a.Add(first)
	a.Add(second)
	require.NoError(t, a.Save(dir))

	_, err := os.Stat(filepath.Join(dir, first.ID+".jsonl"))
	require.NoError(t, err)

	loaded := NewArchive()
	require.NoError(t, loaded.Load(dir))
	require.Equal(t, 2, loaded.Count())

	list := loaded.List()
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "seed=2", list[1].Query)
	assert.Len(t, list[1].Trajectories, 1)

	_, err = loaded.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_LoadMissingDir(t *testing.T) {
	a := NewArchive()
	assert.NoError(t, a.Load(filepath.Join(t.TempDir(), "absent")))
	assert.Equal(t, 0, a.Count())
}

func TestArchive_AddKeepsPosition(t *testing.T) {
	a := NewArchive()
	first := New("first", "", nil)
	a.Add(first)
	a.Add(New("second", "", nil))

	replaced := *first
	replaced.Name = "renamed"
	a.Add(&replaced)

	list := a.List()
	require.Len(t, list, 2)
	assert.Equal(t, "renamed", list[0].Name)
}
