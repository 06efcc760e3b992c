package domain

// Combo is a saved condition combination: an AND/OR tree of leaf
// comparisons evaluated over a candle series.
type Combo struct {
	Name string    `json:"name" yaml:"name"`
	Root ComboNode `json:"root" yaml:"root"`
}

// ComboNode is either a branch (Logic + Children) or a leaf (Key set).
type ComboNode struct {
	Logic    string      `json:"logic,omitempty" yaml:"logic,omitempty"` // "AND" | "OR" for branches
	Children []ComboNode `json:"children,omitempty" yaml:"children,omitempty"`

	Key      string  `json:"key,omitempty" yaml:"key,omitempty"`
	Operator string  `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Period   int     `json:"period,omitempty" yaml:"period,omitempty"`
	Fast     int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow     int     `json:"slow,omitempty" yaml:"slow,omitempty"`
}

// IsLeaf reports whether the node is a leaf comparison.
func (n ComboNode) IsLeaf() bool {
	return n.Key != ""
}

// ComboCondition is one row of the flat builder format, chained to the
// previous row with Logic.
type ComboCondition struct {
	Type     string  `json:"type"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Logic    string  `json:"logic,omitempty"`
	Period   int     `json:"period,omitempty"`
	Fast     int     `json:"fast,omitempty"`
	Slow     int     `json:"slow,omitempty"`
}

// Combo logic operators
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)
