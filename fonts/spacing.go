package fonts

// SpacingTable maps a font family to a spacing coefficient: a signed
// fraction of the font size added to every row step. Families that are not
// listed use 0.
//
// A SpacingTable is read-only once built; use NewSpacingTable to copy
// caller-owned maps.
type SpacingTable struct {
	coefficients map[string]float64
}

// DefaultSpacing holds the spacing corrections for the brush fonts offered
// by the viewer.
var DefaultSpacing = NewSpacingTable(map[string]float64{
	"ta-fuga-fude":        0,
	"kokuryu":             -0.1,
	"ab-ootori":           0,
	"ab-togetsukanteiryu": 0,
	"ta-engeifude":        0,
})

// NewSpacingTable copies m into a new table.
func NewSpacingTable(m map[string]float64) SpacingTable {
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return SpacingTable{coefficients: c}
}

// Coefficient returns the spacing coefficient for family, or 0.
func (t SpacingTable) Coefficient(family string) float64 {
	return t.coefficients[family]
}

// Merge returns a new table with the entries of other overriding t.
func (t SpacingTable) Merge(other map[string]float64) SpacingTable {
	c := make(map[string]float64, len(t.coefficients)+len(other))
	for k, v := range t.coefficients {
		c[k] = v
	}
	for k, v := range other {
		c[k] = v
	}
	return SpacingTable{coefficients: c}
}

// Len returns the number of families with an explicit coefficient.
func (t SpacingTable) Len() int { return len(t.coefficients) }
