// Package diagrams embeds the built-in load descriptions.
package diagrams

import (
	"embed"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-controlroom/pkg/description"
)

//go:embed gauges.yaml steam_plant.hcl
var files embed.FS

// Built-in diagram names.
const (
	NameGauges     = "gauges"
	NameSteamPlant = "steam-plant"
)

var byName = map[string]struct {
	file   string
	format description.Format
}{
	NameGauges:     {"gauges.yaml", description.FormatYAML},
	NameSteamPlant: {"steam_plant.hcl", description.FormatHCL},
}

// Names lists the built-in diagrams in a stable order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ByName decodes the built-in diagram with the given name.
func ByName(name string, opts ...description.Option) (*description.Description, error) {
	entry, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown diagram %q (available: %v)", name, Names())
	}
	data, err := files.ReadFile(entry.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram %s: %w", name, err)
	}
	opts = append([]description.Option{description.WithFilename(entry.file)}, opts...)
	return description.Decode(data, entry.format, opts...)
}

// Gauges is the five-meter flow network.
func Gauges() (*description.Description, error) {
	return ByName(NameGauges)
}

// SteamPlant is the process overview with sensors and control monitors.
func SteamPlant() (*description.Description, error) {
	return ByName(NameSteamPlant)
}
