package model

import (
	"reflect"
	"testing"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestApplyInvariants uses property-based testing to check that every
// committed batch keeps min <= value <= max and that rejected batches leave
// no trace.
func TestApplyInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	ids := []string{"1", "2", "4"}

	properties.Property("apply keeps every node in bounds", prop.ForAll(
		func(targets []int, values []float64) bool {
			g, err := Load(testDescription(), logging.NewNopLogger())
			if err != nil {
				return false
			}

			for i := 0; i+1 < len(targets); i += 2 {
				batch := []Write{
					{NodeID: ids[targets[i]], Field: FieldValue, Value: NumberValue(values[i])},
					{NodeID: ids[targets[i+1]], Field: FieldValue, Value: NumberValue(values[i+1])},
				}
				before := g.Nodes()
				if _, err := g.Apply(batch); err != nil {
					if !reflect.DeepEqual(before, g.Nodes()) {
						return false
					}
				}
				for _, n := range g.Nodes() {
					if !n.inBounds() {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.IntRange(0, len(ids)-1)),
		gen.SliceOfN(10, gen.Float64Range(-50, 150)),
	))

	properties.Property("deltas describe exactly what changed", prop.ForAll(
		func(target int, value float64) bool {
			g, err := Load(testDescription(), logging.NewNopLogger())
			if err != nil {
				return false
			}
			before, _ := g.Get(ids[target])
			deltas, err := g.Apply([]Write{{NodeID: ids[target], Field: FieldValue, Value: NumberValue(value)}})
			if err != nil {
				return len(deltas) == 0
			}
			after, _ := g.Get(ids[target])
			if before.Value.Equal(after.Value) {
				return len(deltas) == 0
			}
			return len(deltas) == 1 && deltas[0].Old.Equal(before.Value) && deltas[0].New.Equal(after.Value)
		},
		gen.IntRange(0, len(ids)-1),
		gen.Float64Range(0, 130),
	))

	properties.TestingRun(t)
}
