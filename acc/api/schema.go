package api

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"
)

// FieldType enumerates the wire types a parameter may declare.
type FieldType int

const (
	FieldInt FieldType = iota
	FieldString
	FieldBool
)

// Field declares one accepted parameter. Zero Min/Max/MaxLen mean
// unbounded; Enum restricts string values when non-empty.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Nullable bool
	Min      int64
	Max      int64
	MinLen   int
	MaxLen   int
	Enum     []string
}

// Schema is the full declared parameter set of one operation. Unknown
// parameters are rejected.
type Schema []Field

// Params is the validated, typed parameter bag handed to the handler
// body. Accessors assume Validate already ran.
type Params map[string]interface{}

func (p Params) Int(name string) int64 {
	v, _ := p[name].(int64)
	return v
}

func (p Params) String(name string) string {
	v, _ := p[name].(string)
	return v
}

func (p Params) Bool(name string) bool {
	v, _ := p[name].(bool)
	return v
}

func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

func invalid(field string) *UserError {
	return NewUserError(KindValidation, "invalid-"+field)
}

// Validate checks raw decoded JSON parameters against the schema and
// returns the typed bag. It runs before the handler body; a failure
// means the body never executes.
func (s Schema) Validate(raw map[string]interface{}) (Params, error) {
	declared := make(map[string]Field, len(s))
	for _, f := range s {
		declared[f.Name] = f
	}
	for name := range raw {
		if _, ok := declared[name]; !ok {
			return nil, invalid(name)
		}
	}

	params := make(Params, len(raw))
	for _, f := range s {
		value, present := raw[f.Name]
		if !present {
			if f.Required {
				return nil, invalid(f.Name)
			}
			continue
		}
		if value == nil {
			if !f.Nullable {
				return nil, invalid(f.Name)
			}
			continue
		}

		typed, err := f.check(value)
		if err != nil {
			return nil, err
		}
		params[f.Name] = typed
	}
	return params, nil
}

func (f Field) check(value interface{}) (interface{}, error) {
	switch f.Type {
	case FieldInt:
		n, ok := asInt(value)
		if !ok {
			return nil, invalid(f.Name)
		}
		if (f.Min != 0 || f.Max != 0) && (n < f.Min || n > f.Max) {
			return nil, invalid(f.Name)
		}
		return n, nil

	case FieldString:
		str, ok := value.(string)
		if !ok {
			return nil, invalid(f.Name)
		}
		if len(str) < f.MinLen {
			return nil, invalid(f.Name)
		}
		if f.MaxLen > 0 && len(str) > f.MaxLen {
			return nil, invalid(f.Name)
		}
		if len(f.Enum) > 0 {
			allowed := false
			for _, e := range f.Enum {
				if str == e {
					allowed = true
					break
				}
			}
			if !allowed {
				return nil, invalid(f.Name)
			}
		}
		return str, nil

	case FieldBool:
		b, ok := value.(bool)
		if !ok {
			return nil, invalid(f.Name)
		}
		return b, nil
	}
	return nil, invalid(f.Name)
}

// asInt accepts JSON numbers and json.Number, rejecting fractions.
func asInt(value interface{}) (int64, bool) {
	switch n := value.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// parseBody decodes the request body and validates it in one step.
// Empty bodies validate against the schema as an empty parameter set.
func parseBody(c *fiber.Ctx, schema Schema) (Params, error) {
	raw := map[string]interface{}{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return nil, NewUserError(KindValidation, "malformed-body")
		}
	}

	params, err := schema.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("parameter validation: %w", err)
	}
	return params, nil
}
