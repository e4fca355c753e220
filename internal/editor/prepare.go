package editor

import (
	"strings"
	"time"

	"pomi/internal/apperror"
	"pomi/internal/schema"
)

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// MissingRequired returns the labels of required fields that are absent,
// null or blank in data.
func MissingRequired(t *schema.Table, data map[string]any) []string {
	var missing []string
	for _, col := range t.Required {
		if isBlank(data[col]) {
			missing = append(missing, t.LabelOf(col))
		}
	}
	return missing
}

// PrepareInsert turns user input into the column values of a new record.
// Required fields are checked first; nothing else runs when one is missing.
func PrepareInsert(t *schema.Table, data map[string]any, now time.Time) (map[string]any, error) {
	if missing := MissingRequired(t, data); len(missing) > 0 {
		return nil, apperror.MissingFields(missing)
	}

	values := make(map[string]any, len(data)+4)
	for name, v := range data {
		if name == t.PrimaryKey || !t.IsStored(name) {
			continue
		}
		col, _ := t.Column(name)
		nv, err := NormalizeValue(col.Type, v)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrValidationFailed,
				"Valeur invalide pour "+col.Label+" : "+err.Error(), err)
		}
		values[name] = nv
	}

	for _, h := range t.Hidden {
		if _, ok := values[h.Name]; !ok && !t.IsCalculated(h.Name) {
			values[h.Name] = nil
		}
	}

	if k := t.AutoKey; k != nil {
		parts := make([]string, 0, len(k.Sources))
		for _, src := range k.Sources {
			s, _ := values[src].(string)
			parts = append(parts, strings.TrimSpace(s))
		}
		values[k.Column] = strings.Join(parts, k.Separator)
	}

	if v, ok := values[schema.ActiveColumn]; !ok || v == nil {
		values[schema.ActiveColumn] = true
	}
	if t.HasCreatedAt {
		values[schema.CreatedAtColumn] = now
	}
	if t.HasUpdatedAt {
		values[schema.UpdatedAtColumn] = now
	}
	return values, nil
}

// PrepareUpdate returns the assignments of one row update: the changed
// editable columns plus updated_at when the table tracks it.
func PrepareUpdate(t *schema.Table, change RowChange, now time.Time) map[string]any {
	values := make(map[string]any, len(change.Values)+1)
	for col, v := range change.Values {
		if t.IsEditable(col) {
			values[col] = v
		}
	}
	if len(values) > 0 && t.HasUpdatedAt {
		values[schema.UpdatedAtColumn] = now
	}
	return values
}

// PrepareActivation returns the assignments of a soft delete or reactivation:
// the active flag, plus updated_at when the table tracks it. Business columns
// are never touched.
func PrepareActivation(t *schema.Table, active bool, now time.Time) map[string]any {
	values := map[string]any{schema.ActiveColumn: active}
	if t.HasUpdatedAt {
		values[schema.UpdatedAtColumn] = now
	}
	return values
}
