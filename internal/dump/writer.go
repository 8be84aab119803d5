package dump

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"skyrating/internal/constants"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Writer appends newline-delimited JSON records to an underlying writer.
type Writer struct {
	bw    *bufio.Writer
	count int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, constants.DumpChunkSize)}
}

func (w *Writer) Encode(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return w.WriteRaw(b)
}

// WriteRaw appends an already encoded record. The record must not contain a newline.
func (w *Writer) WriteRaw(record []byte) error {
	if _, err := w.bw.Write(record); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Source streams the stored payloads of one season.
type Source interface {
	StreamKills(ctx context.Context, season int, fn func(payload []byte) error) error
	StreamDeaths(ctx context.Context, season int, fn func(payload []byte) error) error
	StreamSessionActions(ctx context.Context, season int, fn func(payload []byte) error) error
}

type Paths struct {
	Dir      string
	Kills    string
	Deaths   string
	Sessions string
}

func SeasonPaths(root string, season int) Paths {
	dir := filepath.Join(root, fmt.Sprintf("season-%d", season))
	return Paths{
		Dir:      dir,
		Kills:    filepath.Join(dir, constants.KillsDumpFile),
		Deaths:   filepath.Join(dir, constants.DeathsDumpFile),
		Sessions: filepath.Join(dir, constants.SessionsDumpFile),
	}
}

// Clean removes every dump under root. A missing root is not an error.
func Clean(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("failed to remove old dumps: %w", err)
	}
	return nil
}

// WriteSeason streams the kills, deaths and session actions of season into
// three NDJSON files under root.
func WriteSeason(ctx context.Context, src Source, root string, season int, logger zerolog.Logger) (Paths, error) {
	paths := SeasonPaths(root, season)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return paths, fmt.Errorf("failed to create dump dir: %w", err)
	}

	files := []struct {
		name   string
		path   string
		stream func(context.Context, int, func([]byte) error) error
	}{
		{"kills", paths.Kills, src.StreamKills},
		{"deaths", paths.Deaths, src.StreamDeaths},
		{"sessions", paths.Sessions, src.StreamSessionActions},
	}
	for _, f := range files {
		n, err := writeFile(ctx, f.path, season, f.stream)
		if err != nil {
			return paths, fmt.Errorf("failed to dump %s: %w", f.name, err)
		}
		logger.Info().Str("file", f.path).Int("records", n).Msg("dump written")
	}
	return paths, nil
}

func writeFile(ctx context.Context, path string, season int, stream func(context.Context, int, func([]byte) error) error) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	w := NewWriter(file)
	if err := stream(ctx, season, w.WriteRaw); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return w.Count(), file.Close()
}
