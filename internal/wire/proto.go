package wire

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts an object into a protobuf Struct for event payloads.
// Key order is lost: protobuf maps are unordered.
func ToStruct(o *Object) (*structpb.Struct, error) {
	if o == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	return structpb.NewStruct(o.ToMap())
}

// FromStruct converts a protobuf Struct back into an object with sorted keys.
// All numbers come back as float64.
func FromStruct(s *structpb.Struct) *Object {
	if s == nil {
		return NewObject()
	}
	return FromMap(s.AsMap())
}
