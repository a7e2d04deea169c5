package imaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trmnlp/trmnlp/internal/executor"
)

// DefaultConvertBin is the ImageMagick binary used when none is configured
const DefaultConvertBin = "convert"

// ConvertSwitches produce a 1-bit RLE compressed BMP3
var ConvertSwitches = []string{
	"-dither", "FloydSteinberg",
	"-monochrome",
	"-depth", "1",
	"-strip",
	"-compress", "RLE",
	"-define", "bmp:format=bmp3",
}

// Converter turns PNG screenshots into device BMPs through ImageMagick
type Converter struct {
	runner  executor.Runner
	bin     string
	timeout time.Duration
	tempDir string
}

// NewConverter creates a converter. tempDir may be empty for the OS default.
func NewConverter(runner executor.Runner, bin string, timeout time.Duration, tempDir string) *Converter {
	if bin == "" {
		bin = DefaultConvertBin
	}
	return &Converter{
		runner:  runner,
		bin:     bin,
		timeout: timeout,
		tempDir: tempDir,
	}
}

// Args returns the converter arguments for an input and output file
func (c *Converter) Args(input, output string) []string {
	args := make([]string, 0, len(ConvertSwitches)+2)
	args = append(args, input)
	args = append(args, ConvertSwitches...)
	return append(args, "bmp3:"+output)
}

// ToBMP converts PNG bytes to BMP bytes
func (c *Converter) ToBMP(ctx context.Context, png []byte) ([]byte, error) {
	dir, err := os.MkdirTemp(c.tempDir, "trmnlp-image-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "screenshot.png")
	output := filepath.Join(dir, "screenshot.bmp")

	if err := os.WriteFile(input, png, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}

	_, err = c.runner.Run(ctx, executor.Command{
		Path:    c.bin,
		Args:    c.Args(input, output),
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("image conversion failed: %w", err)
	}

	bmp, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted image: %w", err)
	}
	return bmp, nil
}
