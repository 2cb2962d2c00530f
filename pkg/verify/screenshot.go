package verify

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePNG checks that data is a non-empty PNG with a positive size
func ValidatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidScreenshot)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScreenshot, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidScreenshot, cfg.Width, cfg.Height)
	}
	return nil
}

// CheckScreenshotFile validates a screenshot already written to disk
func CheckScreenshotFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read screenshot: %w", err)
	}
	return ValidatePNG(data)
}

// writeScreenshot validates data and writes it to dir/filename
func writeScreenshot(dir, filename string, data []byte) (string, error) {
	if err := ValidatePNG(data); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// failureName turns "verification_feeding.png" into "verification_feeding_failure.png"
func failureName(filename string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filepath.Base(filename), ext) + "_failure" + ext
}
