package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// palette maps the color names used by diagrams to terminal colors.
var palette = map[string]string{
	"black":       "#444444",
	"green":       "#00C000",
	"lightsalmon": "#FFA07A",
	"orange":      "#FFA500",
	"pink":        "#FFC0CB",
	"red":         "#FF0000",
	"skyblue":     "#87CEEB",
	"white":       "#FFFFFF",
	"yellow":      "#FFFF00",
}

const fallbackColor = "#00FFFF"

// colorFor resolves a palette name or a #rrggbb literal.
func colorFor(name string) lipgloss.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(name, "#") {
		return lipgloss.Color(name)
	}
	if hex, ok := palette[name]; ok {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(fallbackColor)
}
