package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/mrpcrp/pkg/application/dto"
)

// Formats lists the supported values of Config.Format
var Formats = []string{"text", "json", "yaml", "csv", "xlsx", "gantt"}

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Stdout receives output that is not written to a file; defaults to os.Stdout
	Stdout io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// Generate creates output in the specified format
func Generate(result *dto.RunResult, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(result, config)
	case "json":
		return generateEncoded(result, config, "plan.json", func(w io.Writer, r *Report) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		})
	case "yaml":
		return generateEncoded(result, config, "plan.yaml", func(w io.Writer, r *Report) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(r)
		})
	case "csv":
		return generateCSVOutput(result, config)
	case "xlsx":
		return generateXLSXOutput(result, config)
	case "gantt":
		return generateGanttOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateEncoded prints the report to stdout, or to filename inside the
// output directory when one is configured
func generateEncoded(result *dto.RunResult, config Config, filename string, encode func(io.Writer, *Report) error) error {
	report := NewReport(result)
	if config.OutputDir == "" {
		return encode(config.stdout(), report)
	}

	path, err := outputPath(config, filename)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := encode(f, report); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if config.Verbose {
		fmt.Fprintf(config.stdout(), "Results saved to: %s\n", path)
	}
	return nil
}

func outputPath(config Config, filename string) (string, error) {
	if config.OutputDir == "" {
		return "", fmt.Errorf("output directory required for %s format", config.Format)
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, filename), nil
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
