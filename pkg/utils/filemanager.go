// =============================================================================
// NF-e / DANFE Filter - File Manager Utility
// =============================================================================
//
// This module provides the file utilities used by the filter command:
//   - Reading the input archives from disk
//   - Output directory management
//   - Output file naming
//   - Writing the result archive
//
// Result files are written to a temporary name and renamed into place, so
// a crash never leaves a truncated archive under the final name.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// INPUT FILES
// =============================================================================

// ReadOptionalFile reads a file when path is set.
//
// RETURNS:
//   - nil, nil when path is empty (the input was not supplied).
//   - The content, or an error if the file cannot be read.
func ReadOptionalFile(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// EnsureDirectory creates dir and its parents if missing.
func EnsureDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, e.g. {"run": runID}.
//
// RETURNS:
//   - The generated file name, always ending in .zip.
//
// EXAMPLE:
//   format: "resultado_filtrado_{uuid}.zip"
//   output: "resultado_filtrado_a1b2c3d4-e5f6-7890-abcd-ef1234567890.zip"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".zip") {
		result += ".zip"
	}
	return result
}

// WriteOutputFile writes data to dir/name through a temporary file.
//
// RETURNS:
//   - The final path.
//   - An error if the directory cannot be created or the write fails.
func WriteOutputFile(dir, name string, data []byte) (string, error) {
	if err := EnsureDirectory(dir); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close output: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tmpName, finalPath); err != nil {
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}
	return finalPath, nil
}
