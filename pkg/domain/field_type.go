package domain

// FieldType identifies the kind of value a validator checks.
type FieldType string

const (
	FieldEmail   FieldType = "email"
	FieldPhone   FieldType = "phone"
	FieldAddress FieldType = "address"
	FieldName    FieldType = "name"
	FieldIP      FieldType = "ip"
	FieldDevice  FieldType = "device"
)

// AllFieldTypes lists every field kind in placeholder-fill order.
var AllFieldTypes = []FieldType{
	FieldEmail, FieldPhone, FieldAddress, FieldName, FieldIP, FieldDevice,
}

// IsValid checks if the field type is one of the supported enum values.
func (f FieldType) IsValid() bool {
	for _, t := range AllFieldTypes {
		if f == t {
			return true
		}
	}
	return false
}

// String returns the string representation of the field type.
func (f FieldType) String() string {
	return string(f)
}
