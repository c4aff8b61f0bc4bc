package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// maxCell bounds a cell's width outside wide mode.
const maxCell = 48

// leadingColumns are shown first, in this order, when present.
var leadingColumns = []string{"id", "name", "title", "username", "status"}

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	// Wide keeps nested values and long cells.
	Wide      bool
	NoHeaders bool
}

// Format implements Formatter.
//
// Slices of structs or maps become one row per element. A single map or
// struct becomes a FIELD/VALUE table. Anything else falls back to JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	table, err := toTable(data, f.Wide)
	if err != nil {
		return (&JSONFormatter{}).Format(w, data)
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

func toTable(data any, wide bool) (*Table, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return sliceToTable(v, wide)
	case reflect.Map:
		return mapToTable(v, wide)
	case reflect.Struct:
		return structToTable(v, wide)
	default:
		return nil, fmt.Errorf("unsupported type: %s", v.Kind())
	}
}

func sliceToTable(v reflect.Value, wide bool) (*Table, error) {
	if v.Len() == 0 {
		return &Table{}, nil
	}

	first := indirect(v.Index(0))
	switch first.Kind() {
	case reflect.Struct:
		return structSliceToTable(v, first.Type(), wide), nil
	case reflect.Map:
		if first.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key: %s", first.Type().Key())
		}
		return mapSliceToTable(v, wide), nil
	default:
		table := &Table{Headers: []string{"VALUE"}}
		for i := 0; i < v.Len(); i++ {
			table.AddRow(cell(v.Index(i), wide))
		}
		return table, nil
	}
}

func structSliceToTable(v reflect.Value, t reflect.Type, wide bool) *Table {
	var fields []int
	table := &Table{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (strings.Contains(tag, "wide") && !wide) {
			continue
		}
		table.Headers = append(table.Headers, header(fieldName(field)))
		fields = append(fields, i)
	}

	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		row := make([]string, 0, len(fields))
		for _, idx := range fields {
			row = append(row, cell(elem.Field(idx), wide))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// mapSliceToTable builds columns from the union of keys. Outside wide
// mode, keys holding nested objects or lists are left out.
func mapSliceToTable(v reflect.Value, wide bool) *Table {
	seen := map[string]bool{}
	nested := map[string]bool{}
	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		if !elem.IsValid() {
			continue
		}
		iter := elem.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			seen[k] = true
			if isComposite(iter.Value()) {
				nested[k] = true
			}
		}
	}

	var keys []string
	for k := range seen {
		if nested[k] && !wide {
			continue
		}
		keys = append(keys, k)
	}
	sortColumns(keys)

	table := &Table{}
	for _, k := range keys {
		table.Headers = append(table.Headers, header(k))
	}
	for i := 0; i < v.Len(); i++ {
		elem := indirect(v.Index(i))
		if !elem.IsValid() {
			continue
		}
		row := make([]string, 0, len(keys))
		for _, k := range keys {
			row = append(row, cell(elem.MapIndex(reflect.ValueOf(k).Convert(elem.Type().Key())), wide))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func mapToTable(v reflect.Value, wide bool) (*Table, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("unsupported map key: %s", v.Type().Key())
	}
	var keys []string
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sortColumns(keys)

	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, k := range keys {
		val := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
		table.AddRow(k, cell(val, wide))
	}
	return table, nil
}

func structToTable(v reflect.Value, wide bool) (*Table, error) {
	table := &Table{Headers: []string{"FIELD", "VALUE"}}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("table") == "-" {
			continue
		}
		table.AddRow(fieldName(field), cell(v.Field(i), wide))
	}
	return table, nil
}

func sortColumns(keys []string) {
	rank := func(k string) int {
		for i, lead := range leadingColumns {
			if strings.EqualFold(k, lead) {
				return i
			}
		}
		return len(leadingColumns)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}

func fieldName(field reflect.StructField) string {
	if jsonTag := field.Tag.Get("json"); jsonTag != "" {
		name, _, _ := strings.Cut(jsonTag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// header turns a camelCase or snake_case name into an upper-case header.
func header(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isComposite(v reflect.Value) bool {
	v = indirect(v)
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	case reflect.Struct:
		return v.Type() != reflect.TypeOf(time.Time{})
	}
	return false
}

// cell formats a value for display.
func cell(v reflect.Value, wide bool) string {
	s := formatValue(v, wide)
	if !wide && len(s) > maxCell {
		s = s[:maxCell-3] + "..."
	}
	return s
}

func formatValue(v reflect.Value, wide bool) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}

	if v.Type() == reflect.TypeOf(time.Time{}) {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	}

	switch v.Kind() {
	case reflect.String:
		if s := v.String(); s != "" {
			return strings.ReplaceAll(s, "\n", " ")
		}
		return "-"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		// JSON numbers decode as float64; show whole numbers as integers.
		f := v.Float()
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.2f", f)
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if v.Kind() != reflect.Struct && v.Len() == 0 {
			return "-"
		}
		if wide {
			if b, err := json.Marshal(v.Interface()); err == nil {
				return string(b)
			}
		}
		if v.Kind() == reflect.Map || v.Kind() == reflect.Struct {
			return "{...}"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
