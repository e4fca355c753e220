package editor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pomi/internal/schema"
)

const dateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	dateLayout,
}

// NormalizeValue converts v to the canonical Go type of a column type:
// string, int64, decimal.Decimal, time.Time or bool. Blank strings become nil.
func NormalizeValue(ct schema.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	switch ct {
	case schema.TypeText:
		return toText(v), nil
	case schema.TypeInteger:
		return toInt(v)
	case schema.TypeDecimal:
		return toDecimal(v)
	case schema.TypeDate:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case schema.TypeTimestamp:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case schema.TypeBool:
		return toBool(v)
	}
	return v, nil
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case decimal.Decimal:
		if !x.Equal(x.Truncate(0)) {
			return nil, fmt.Errorf("%s is not a whole number", x)
		}
		return x.IntPart(), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", x)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported integer value %T", v)
}

func floatToInt(f float64) (any, error) {
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return int64(f), nil
}

func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(x), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", x)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported decimal value %T", v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a date", x)
	}
	return time.Time{}, fmt.Errorf("unsupported date value %T", v)
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "oui", "yes", "vrai":
			return true, nil
		case "false", "0", "non", "no", "faux":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", x)
	}
	return nil, fmt.Errorf("unsupported boolean value %T", v)
}

// ValuesEqual is null-aware equality over normalized values: two nils are
// equal, nil and non-nil are not.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
