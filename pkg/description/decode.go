package description

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"
)

// Format names a description encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

type decodeOptions struct {
	logger   logging.Logger
	filename string
}

// Option configures decoding.
type Option func(*decodeOptions)

// WithLogger sets the logger used for recoverable problems such as repaired JSON.
func WithLogger(logger logging.Logger) Option {
	return func(o *decodeOptions) {
		o.logger = logger
	}
}

// WithFilename names the source in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) {
		o.filename = name
	}
}

// Decode parses data in the given format, assigns keys to keyless links
// and validates the result.
func Decode(data []byte, format Format, opts ...Option) (*Description, error) {
	o := decodeOptions{
		logger:   logging.DefaultLogger(),
		filename: "description." + string(format),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		d   *Description
		err error
	)
	switch format {
	case FormatJSON:
		d, err = decodeJSON(data, o)
	case FormatYAML:
		d = &Description{}
		if err = yaml.Unmarshal(data, d); err != nil {
			err = fmt.Errorf("failed to decode YAML description %s: %w", o.filename, err)
		}
	case FormatHCL:
		d, err = decodeHCL(data, o.filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	d.assignEdgeKeys()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// decodeJSON decodes strictly first; on failure the input is run through
// jsonrepair once and decoded again.
func decodeJSON(data []byte, o decodeOptions) (*Description, error) {
	d := &Description{}
	err := json.Unmarshal(data, d)
	if err == nil {
		return d, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return nil, fmt.Errorf("failed to decode JSON description %s: %w (repair failed: %v)", o.filename, err, repairErr)
	}

	d = &Description{}
	if err2 := json.Unmarshal([]byte(repaired), d); err2 != nil {
		return nil, fmt.Errorf("failed to decode JSON description %s: %w", o.filename, err2)
	}
	o.logger.Warn("description JSON was malformed and has been repaired",
		logging.Path(o.filename),
		logging.Error(err))
	return d, nil
}

// LoadFile reads a description, choosing the format from the extension.
func LoadFile(path string, opts ...Option) (*Description, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}
	return Decode(data, format, append([]Option{WithFilename(path)}, opts...)...)
}

// Encode writes d as JSON or YAML. HCL is read-only.
func Encode(d *Description, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		return yaml.Marshal(d)
	default:
		return nil, fmt.Errorf("%w for encoding: %q", ErrUnsupportedFormat, format)
	}
}
