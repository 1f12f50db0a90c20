// Package construct recognizes the shape of the code that follows an
// annotation block.
//
// Recognition is heuristic: an ordered list of textual rules is tried
// against the start of the fragment and the first match wins. Captured text
// is kept verbatim; parameter lists and values are never parsed.
package construct

// Type discriminates a Record.
type Type string

const (
	TypeFunction          Type = "function"
	TypeModule            Type = "module"
	TypeIIFE              Type = "iife"
	TypeFunctionExpr      Type = "function-expr"
	TypeFunctionInline    Type = "function-inline"
	TypePrototypeMethod   Type = "prototype-method"
	TypePrototypeProperty Type = "prototype-property"
	TypeMethod            Type = "method"
	TypeProperty          Type = "property"
	TypeVarDeclInit       Type = "var-declaration-init"
	TypeVarDecl           Type = "var-declaration"
	TypeComment           Type = "comment"
	TypeUnrecognized      Type = "unrecognized"
)

// IsFunctionLike reports whether records of this type carry a parameter list.
func (t Type) IsFunctionLike() bool {
	switch t {
	case TypeFunction, TypeIIFE, TypeFunctionExpr, TypeFunctionInline,
		TypePrototypeMethod, TypeMethod:
		return true
	}
	return false
}

// Record describes one recognized construct. Which fields are set depends on
// Type:
//
//   - function, function-expr, function-inline, iife: Name (empty for iife), Params
//   - prototype-method, prototype-property: Constructor, Name, Params or Value
//   - method, property: Receiver, Name, Params or Value
//   - var-declaration-init, var-declaration: Name, Value
//
// FirstLine and Signature are always set.
type Record struct {
	Type        Type   `json:"type"`
	Name        string `json:"name,omitempty"`
	Constructor string `json:"constructor,omitempty"`
	Receiver    string `json:"receiver,omitempty"`
	Params      string `json:"params,omitempty"`
	Value       string `json:"value,omitempty"`
	FirstLine   string `json:"first_line"`
	Signature   string `json:"signature"`
}
