package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/dd0wney/cluso-controlroom/pkg/gesture"
	"github.com/dd0wney/cluso-controlroom/pkg/model"
)

// Screen geometry of the bar section. Rows are counted from the top of the
// terminal, columns from the left edge.
const (
	barTop     = 4
	labelWidth = 18
	barColumn  = labelWidth + 2
	minBar     = 10
	maxBar     = 60
)

// sliderPort is the port name gestures are reported against.
const sliderPort = "SLIDER"

// bar is one gauge drawn as a horizontal slider.
type bar struct {
	nodeID string
	label  string
	row    int
	x      int
	width  int
	min    float64
	max    float64
}

// layout tracks where every bar was last placed and projects pointer
// positions back onto node values.
type layout struct {
	bars  []bar
	index map[string]int
}

func newLayout() *layout {
	return &layout{index: make(map[string]int)}
}

func barWidth(termWidth int) int {
	w := termWidth - barColumn - 20
	return max(minBar, min(maxBar, w))
}

// place lays out one bar per numeric node, in diagram order.
func (l *layout) place(nodes []model.Node, termWidth int) {
	width := barWidth(termWidth)
	l.bars = l.bars[:0]
	clear(l.index)
	for _, n := range nodes {
		if !n.Value.IsNumber() {
			continue
		}
		l.index[n.ID] = len(l.bars)
		l.bars = append(l.bars, bar{
			nodeID: n.ID,
			label:  nodeLabel(n),
			row:    barTop + len(l.bars),
			x:      barColumn,
			width:  width,
			min:    n.Min,
			max:    n.Max,
		})
	}
}

// hit returns the bar under a cell, if any.
func (l *layout) hit(x, y int) (bar, bool) {
	i := y - barTop
	if i < 0 || i >= len(l.bars) {
		return bar{}, false
	}
	b := l.bars[i]
	if x < b.x || x >= b.x+b.width {
		return bar{}, false
	}
	return b, true
}

// ProjectPointToValue maps a column on a bar linearly onto [min, max]. A
// column past either end maps outside the bounds, so the move is ignored.
func (l *layout) ProjectPointToValue(nodeID, _ string, p gesture.Point) (float64, error) {
	i, ok := l.index[nodeID]
	if !ok {
		return 0, fmt.Errorf("node %s has no bar on screen", nodeID)
	}
	b := l.bars[i]
	if b.width <= 1 {
		return b.min, nil
	}
	frac := (p.X - float64(b.x)) / float64(b.width-1)
	return b.min + frac*(b.max-b.min), nil
}

// fill returns how many cells of the bar a value covers.
func (b bar) fill(v float64) int {
	if b.max <= b.min {
		return 0
	}
	n := int(math.Round((v - b.min) / (b.max - b.min) * float64(b.width)))
	return max(0, min(b.width, n))
}

// nodeLabel is the first line of the node's text, or its key.
func nodeLabel(n model.Node) string {
	label := n.ID
	if text, ok := n.Meta["text"].(string); ok && text != "" {
		label, _, _ = strings.Cut(text, "\n")
	} else if title, ok := n.Meta["title"].(string); ok && title != "" {
		label = title
	}
	r := []rune(label)
	if len(r) > labelWidth {
		label = string(r[:labelWidth-1]) + "…"
	}
	return label
}
