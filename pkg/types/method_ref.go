package types

import "strings"

// MethodRef identifies one concrete method found in compiled code.
type MethodRef struct {
	Class      string   `json:"class"`      // fully qualified, e.g. com.foo.Bar$Inner
	Name       string   `json:"name"`       // JVM name, e.g. run or <init>
	Descriptor string   `json:"descriptor"` // e.g. (Ljava/lang/String;I)V
	Parameters []string `json:"parameters"` // decoded simple type names
	ReturnType string   `json:"return_type,omitempty"`
}

// String renders "com.foo.Bar.run(String, int)".
func (r MethodRef) String() string {
	return r.Class + "." + r.Name + "(" + strings.Join(r.Parameters, ", ") + ")"
}
