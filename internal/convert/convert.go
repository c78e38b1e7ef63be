// Package convert runs the one-shot PLY to SPLAT pipeline shared by the
// command-line tools: read the scene, transform (and optionally sort)
// every point, then write the packed records.
package convert

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ply2splat/internal/config"
	"github.com/banshee-data/ply2splat/internal/fsutil"
	"github.com/banshee-data/ply2splat/internal/monitoring"
	"github.com/banshee-data/ply2splat/internal/ply"
	"github.com/banshee-data/ply2splat/internal/splat"
	"github.com/banshee-data/ply2splat/internal/timeutil"
)

// Phase identifies a pipeline stage for progress callbacks.
type Phase string

const (
	PhaseRead    Phase = "read"
	PhaseProcess Phase = "process"
	PhaseWrite   Phase = "write"
)

// Options controls a conversion. Zero Workers and ChunkSize fall back to
// the splat.Transformer defaults.
type Options struct {
	Sort            bool
	Workers         int
	ChunkSize       int
	ReadBufferBytes int
}

// DefaultOptions sorts and uses one worker per CPU.
func DefaultOptions() Options {
	return Options{Sort: true, ReadBufferBytes: ply.DefaultReadBufferSize}
}

// OptionsFromConfig maps a loaded config onto Options.
func OptionsFromConfig(cfg *config.ConvertConfig) Options {
	return Options{
		Sort:            cfg.GetSort(),
		Workers:         cfg.GetWorkers(),
		ChunkSize:       cfg.GetChunkSize(),
		ReadBufferBytes: cfg.GetReadBufferBytes(),
	}
}

// Result describes a finished conversion.
type Result struct {
	RunID   uuid.UUID
	Input   string
	Output  string
	Points  int
	Sorted  bool
	Records []splat.PackedPoint

	Read    time.Duration
	Process time.Duration
	Write   time.Duration
	Total   time.Duration
}

// Converter converts files through FS. The phase hooks, when set, are
// called as each phase starts and ends; OnPhaseEnd also receives the number
// of points the phase handled.
type Converter struct {
	FS      fsutil.FileSystem
	Clock   timeutil.Clock
	Options Options

	OnPhaseStart func(Phase)
	OnPhaseEnd   func(p Phase, took time.Duration, points int)
}

// NewConverter returns a Converter on the OS filesystem.
func NewConverter(opts Options) *Converter {
	return &Converter{FS: fsutil.OSFileSystem{}, Clock: timeutil.RealClock{}, Options: opts}
}

// Convert reads the PLY file at input and writes SPLAT records to output,
// creating the output directory if needed. ctx is checked between phases.
func (c *Converter) Convert(ctx context.Context, input, output string) (*Result, error) {
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	res := &Result{RunID: uuid.New(), Input: input, Output: output, Sorted: c.Options.Sort}
	start := c.Clock.Now()

	raw, err := c.read(input, &res.Read)
	if err != nil {
		return nil, err
	}
	res.Points = len(raw)
	monitoring.Logf("Loaded %d vertices from %s", len(raw), input)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.phaseStart(PhaseProcess)
	t := c.Clock.Now()
	tr := splat.Transformer{Workers: c.Options.Workers, ChunkSize: c.Options.ChunkSize}
	res.Records = tr.Transform(raw, c.Options.Sort)
	res.Process = c.Clock.Since(t)
	monitoring.LogPhase(string(PhaseProcess), res.Process)
	c.phaseEnd(PhaseProcess, res.Process, len(res.Records))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.write(output, res.Records, &res.Write); err != nil {
		return nil, err
	}

	res.Total = c.Clock.Since(start)
	monitoring.Logf("Converted %d points from %s to %s in %.2fs (sorted=%t)",
		res.Points, input, output, res.Total.Seconds(), res.Sorted)
	return res, nil
}

func (c *Converter) read(input string, took *time.Duration) ([]splat.RawPoint, error) {
	c.phaseStart(PhaseRead)
	t := c.Clock.Now()

	f, err := c.FS.Open(input)
	if err != nil {
		return nil, &ply.ParseError{Source: input, Err: fmt.Errorf("failed to open PLY file: %w", err)}
	}
	defer f.Close()
	if n, err := c.FS.Size(input); err == nil {
		monitoring.Logf("Reading %s (%d bytes)", input, n)
	}

	size := c.Options.ReadBufferBytes
	if size <= 0 {
		size = ply.DefaultReadBufferSize
	}
	raw, err := ply.Load(bufio.NewReaderSize(f, size), input)
	if err != nil {
		return nil, err
	}

	*took = c.Clock.Since(t)
	monitoring.LogPhase(string(PhaseRead), *took)
	c.phaseEnd(PhaseRead, *took, len(raw))
	return raw, nil
}

func (c *Converter) write(output string, records []splat.PackedPoint, took *time.Duration) error {
	c.phaseStart(PhaseWrite)
	t := c.Clock.Now()

	if dir := filepath.Dir(output); dir != "." {
		if err := c.FS.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := c.FS.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := splat.Write(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	*took = c.Clock.Since(t)
	monitoring.LogPhase(string(PhaseWrite), *took)
	c.phaseEnd(PhaseWrite, *took, len(records))
	return nil
}

func (c *Converter) phaseStart(p Phase) {
	if c.OnPhaseStart != nil {
		c.OnPhaseStart(p)
	}
}

func (c *Converter) phaseEnd(p Phase, d time.Duration, n int) {
	if c.OnPhaseEnd != nil {
		c.OnPhaseEnd(p, d, n)
	}
}

// Bytes converts an in-memory PLY document and returns the SPLAT bytes and
// the number of records.
func Bytes(plyData []byte, sort bool) ([]byte, int, error) {
	raw, err := ply.LoadBytes(plyData)
	if err != nil {
		return nil, 0, err
	}
	records := splat.TransformAll(raw, sort)
	return splat.Serialize(records), len(records), nil
}
