package dump

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"skyrating/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLinesCarriesPartialRecords(t *testing.T) {
	input := "{\"a\":1}\n{\"b\":22}\n\n{\"c\":333}"

	tests := []struct {
		name      string
		reader    func() *strings.Reader
		chunkSize int
	}{
		{"one chunk", func() *strings.Reader { return strings.NewReader(input) }, 4096},
		{"tiny chunks", func() *strings.Reader { return strings.NewReader(input) }, 3},
		{"exact boundary", func() *strings.Reader { return strings.NewReader(input) }, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			err := ReadLines(tt.reader(), tt.chunkSize, func(line []byte) error {
				got = append(got, string(line))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{`{"a":1}`, `{"b":22}`, `{"c":333}`}, got)
		})
	}
}

func TestReadLinesOneByteReader(t *testing.T) {
	var got []string
	r := iotest.OneByteReader(strings.NewReader("alpha\nbeta\n"))
	err := ReadLines(r, 16, func(line []byte) error {
		got = append(got, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, got)
}

func TestDecodeMalformed(t *testing.T) {
	r := strings.NewReader("{\"userId\":\"a\",\"kind\":\"login\"}\n{not json}\n")

	var seen int
	err := Decode(r, func(a *domain.SessionAction) error {
		seen++
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrStreamParse)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, seen)
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Encode(domain.SessionAction{
			ID:     "s",
			UserID: "u",
			Kind:   domain.SessionLogin,
			Time:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, 3, w.Count())

	var times []time.Time
	err := Decode(&buf, func(a *domain.SessionAction) error {
		times = append(times, a.Time)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.True(t, times[2].Equal(base.Add(2*time.Minute)))
}

type fakeSource struct {
	kills, deaths, sessions [][]byte
}

func emitAll(records [][]byte, fn func([]byte) error) error {
	for _, r := range records {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) StreamKills(_ context.Context, _ int, fn func([]byte) error) error {
	return emitAll(f.kills, fn)
}

func (f *fakeSource) StreamDeaths(_ context.Context, _ int, fn func([]byte) error) error {
	return emitAll(f.deaths, fn)
}

func (f *fakeSource) StreamSessionActions(_ context.Context, _ int, fn func([]byte) error) error {
	return emitAll(f.sessions, fn)
}

func TestWriteSeason(t *testing.T) {
	root := t.TempDir()
	src := &fakeSource{
		kills:  [][]byte{[]byte(`{"id":"k1","weapon":"Gun"}`), []byte(`{"id":"k2","weapon":"AIM-120"}`)},
		deaths: [][]byte{[]byte(`{"id":"d1"}`)},
	}

	paths, err := WriteSeason(context.Background(), src, root, 7, zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, paths.Dir, "season-7")

	var weapons []domain.Weapon
	require.NoError(t, DecodeFile(paths.Kills, func(k *domain.Kill) error {
		weapons = append(weapons, k.Weapon)
		return nil
	}))
	assert.Equal(t, []domain.Weapon{domain.WeaponGun, domain.WeaponAIM120}, weapons)

	var sessions int
	require.NoError(t, DecodeFile(paths.Sessions, func(*domain.SessionAction) error {
		sessions++
		return nil
	}))
	assert.Zero(t, sessions)

	require.NoError(t, Clean(root))
	assert.Error(t, DecodeFile(paths.Kills, func(*domain.Kill) error { return nil }))
}
