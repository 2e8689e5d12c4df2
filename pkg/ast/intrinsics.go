package ast

// Signature is the parameter and return types of a runtime routine.
type Signature struct {
	Params []*VcType
	Return *VcType
}

// Intrinsics are the reserved names of the runtime support routines. A call
// to one of these names never resolves to a user function.
var Intrinsics = map[string]Signature{
	"getInt":      {nil, TypeInt},
	"putInt":      {[]*VcType{TypeInt}, TypeVoid},
	"putIntLn":    {[]*VcType{TypeInt}, TypeVoid},
	"getFloat":    {nil, TypeFloat},
	"putFloat":    {[]*VcType{TypeFloat}, TypeVoid},
	"putFloatLn":  {[]*VcType{TypeFloat}, TypeVoid},
	"putBool":     {[]*VcType{TypeBoolean}, TypeVoid},
	"putBoolLn":   {[]*VcType{TypeBoolean}, TypeVoid},
	"putString":   {[]*VcType{TypeString}, TypeVoid},
	"putStringLn": {[]*VcType{TypeString}, TypeVoid},
	"putLn":       {nil, TypeVoid},
}
