package imaging

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trmnlp/trmnlp/internal/executor"
)

// fakeRunner records commands and writes a fixed output file
type fakeRunner struct {
	commands []executor.Command
	output   []byte
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, cmd executor.Command) (*executor.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return &executor.Result{}, f.err
	}
	last := cmd.Args[len(cmd.Args)-1]
	if err := os.WriteFile(strings.TrimPrefix(last, "bmp3:"), f.output, 0o600); err != nil {
		return nil, err
	}
	return &executor.Result{}, nil
}

type fakeCapturer struct {
	urls []string
	png  []byte
	err  error
}

func (f *fakeCapturer) Capture(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.png, f.err
}

func TestConverter_Args(t *testing.T) {
	c := NewConverter(&fakeRunner{}, "", 0, "")
	args := c.Args("in.png", "out.bmp")

	assert.Equal(t, "in.png", args[0])
	assert.Equal(t, "bmp3:out.bmp", args[len(args)-1])
	assert.Equal(t,
		"-dither FloydSteinberg -monochrome -depth 1 -strip -compress RLE -define bmp:format=bmp3",
		strings.Join(args[1:len(args)-1], " "),
	)
}

func TestConverter_ToBMP(t *testing.T) {
	runner := &fakeRunner{output: []byte("BMdata")}
	c := NewConverter(runner, "/usr/bin/magick", 0, t.TempDir())

	bmp, err := c.ToBMP(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("BMdata"), bmp)

	require.Len(t, runner.commands, 1)
	assert.Equal(t, "/usr/bin/magick", runner.commands[0].Path)
	assert.True(t, strings.HasSuffix(runner.commands[0].Args[0], "screenshot.png"))
}

func TestConverter_SurfacesExitError(t *testing.T) {
	runner := &fakeRunner{err: &executor.ExitError{Command: "convert", ExitCode: 1, Stderr: "no decode delegate"}}
	c := NewConverter(runner, "", 0, t.TempDir())

	_, err := c.ToBMP(context.Background(), []byte("png"))
	require.Error(t, err)

	var exitErr *executor.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode)
}

func TestGenerator(t *testing.T) {
	capturer := &fakeCapturer{png: []byte("png")}
	runner := &fakeRunner{output: []byte("BM")}
	g := NewGenerator(true, capturer, NewConverter(runner, "", 0, t.TempDir()), nil)

	bmp, err := g.Generate(context.Background(), "http://localhost:3000/preview/p/full")
	require.NoError(t, err)
	assert.Equal(t, []byte("BM"), bmp)
	assert.Equal(t, []string{"http://localhost:3000/preview/p/full"}, capturer.urls)
}

func TestGenerator_Disabled(t *testing.T) {
	capturer := &fakeCapturer{}
	g := NewGenerator(false, capturer, nil, nil)

	_, err := g.Generate(context.Background(), "http://x")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, capturer.urls)
	assert.False(t, g.Enabled())
}

func TestGenerator_CaptureFailure(t *testing.T) {
	runner := &fakeRunner{}
	g := NewGenerator(true, &fakeCapturer{err: errors.New("no browser")}, NewConverter(runner, "", 0, ""), nil)

	_, err := g.Generate(context.Background(), "http://x")
	assert.EqualError(t, err, "no browser")
	assert.Empty(t, runner.commands)
}
