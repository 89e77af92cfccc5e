package api

import (
	"errors"
	"testing"
)

var listingSchema = Schema{
	{Name: "itemName", Type: FieldString, Required: true, MinLen: 1, MaxLen: 100},
	{Name: "price", Type: FieldInt, Required: true, Min: 1, Max: 1000000},
	{Name: "description", Type: FieldString, Nullable: true, MaxLen: 500},
	{Name: "status", Type: FieldString, Enum: []string{"open", "closed"}},
	{Name: "urgent", Type: FieldBool},
}

func wantInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var userErr *UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("error = %v, want *UserError", err)
	}
	if userErr.Kind != KindValidation {
		t.Errorf("Kind = %v, want KindValidation", userErr.Kind)
	}
	want := "invalid-" + field
	if len(userErr.Identifiers) == 0 || userErr.Identifiers[0] != want {
		t.Errorf("Identifiers = %v, want [%s]", userErr.Identifiers, want)
	}
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]interface{}
		wantField string
	}{
		{
			name: "valid full set",
			raw: map[string]interface{}{
				"itemName":    "Royal Crown",
				"price":       float64(1200),
				"description": "barely worn",
				"status":      "open",
				"urgent":      true,
			},
		},
		{
			name: "optional fields omitted",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(1200),
			},
		},
		{
			name: "nullable field set to null",
			raw: map[string]interface{}{
				"itemName":    "Royal Crown",
				"price":       float64(1200),
				"description": nil,
			},
		},
		{
			name: "missing required field",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
			},
			wantField: "price",
		},
		{
			name: "null on a non nullable field",
			raw: map[string]interface{}{
				"itemName": nil,
				"price":    float64(1200),
			},
			wantField: "itemName",
		},
		{
			name: "unknown parameter",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(1200),
				"color":    "red",
			},
			wantField: "color",
		},
		{
			name: "fractional number rejected",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(12.5),
			},
			wantField: "price",
		},
		{
			name: "integer below minimum",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(0),
			},
			wantField: "price",
		},
		{
			name: "integer above maximum",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(2000000),
			},
			wantField: "price",
		},
		{
			name: "string too short",
			raw: map[string]interface{}{
				"itemName": "",
				"price":    float64(1200),
			},
			wantField: "itemName",
		},
		{
			name: "enum violation",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(1200),
				"status":   "pending",
			},
			wantField: "status",
		},
		{
			name: "wrong type for bool",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    float64(1200),
				"urgent":   "yes",
			},
			wantField: "urgent",
		},
		{
			name: "string where int expected",
			raw: map[string]interface{}{
				"itemName": "Royal Crown",
				"price":    "1200",
			},
			wantField: "price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := listingSchema.Validate(tt.raw)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				if params.String("itemName") != "Royal Crown" {
					t.Errorf("itemName = %q", params.String("itemName"))
				}
				if params.Int("price") != 1200 {
					t.Errorf("price = %d, want 1200", params.Int("price"))
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			wantInvalid(t, err, tt.wantField)
		})
	}
}

// Null and absent are distinct: a nullable field sent as null is known
// but unset, Has reports absence only for parameters never sent.
func TestParamsNullVersusAbsent(t *testing.T) {
	params, err := listingSchema.Validate(map[string]interface{}{
		"itemName":    "Royal Crown",
		"price":       float64(1200),
		"description": nil,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if params.Has("description") {
		t.Error("null parameter should not appear in the bag")
	}
	if params.Has("status") {
		t.Error("absent parameter should not appear in the bag")
	}
	if params.String("description") != "" {
		t.Error("null string should read as zero value")
	}
}

func TestSchemaValidateEmptyBody(t *testing.T) {
	optional := Schema{
		{Name: "limit", Type: FieldInt, Min: 1, Max: 100},
	}
	params, err := optional.Validate(map[string]interface{}{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if params.Has("limit") {
		t.Error("empty body should produce an empty bag")
	}
}
