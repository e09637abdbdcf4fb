package harness

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/store"
	"github.com/roach88/dragboard/internal/testutil"
)

// journalColumns lists what a final_state assertion may select or filter
// on. CBOR blob columns are left out. Identifiers are only ever taken from
// this map, never from the scenario text.
var journalColumns = map[string][]string{
	"sessions":    {"token", "dragged", "start_seq", "initial_hash", "commit_unchanged", "sticky_target", "end_seq", "outcome", "final_hash"},
	"events":      {"id", "session", "seq", "type"},
	"commits":     {"id", "session", "op", "item", "from_container", "to_container", "new_index"},
	"diagnostics": {"id", "session", "seq", "code", "message", "item", "container", "fatal"},
}

// AssertionError describes a failed assertion. Trace is attached for the
// trace assertions so the failure shows what actually happened.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: want %s, got %s", e.Type, e.Expected, e.Actual)
	if len(e.Trace) > 0 {
		b.WriteString("\nFull trace:")
		for _, ev := range e.Trace {
			fmt.Fprintf(&b, "\n  [%d] %s %v", ev.Seq, ev.Action, ev.Args)
		}
	}
	return b.String()
}

func failure(kind, want, got string) *AssertionError {
	return &AssertionError{Type: kind, Expected: want, Actual: got}
}

func traceFailure(kind, want, got string, trace []TraceEvent) *AssertionError {
	e := failure(kind, want, got)
	e.Trace = trace
	return e
}

// assertTraceContains passes when some entry has the action and a superset
// of the given args.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	found := slices.ContainsFunc(trace, func(ev TraceEvent) bool {
		return ev.Action == a.Action && matchArgs(ev.Args, a.Args)
	})
	if found {
		return nil
	}
	return traceFailure(AssertTraceContains,
		fmt.Sprintf("%s with %v", a.Action, a.Args), "no matching entry", trace)
}

// assertTraceOrder passes when the actions occur in this order, not
// necessarily adjacent. Each listed action consumes one occurrence.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	rest := trace
	for _, want := range a.Actions {
		i := slices.IndexFunc(rest, func(ev TraceEvent) bool { return ev.Action == want })
		if i < 0 {
			pos := len(trace) - len(rest)
			return traceFailure(AssertTraceOrder,
				fmt.Sprintf("order %v", a.Actions),
				fmt.Sprintf("%s not found after position %d", want, pos), trace)
		}
		rest = rest[i+1:]
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, ev := range trace {
		if ev.Action == a.Action {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return traceFailure(AssertTraceCount,
		fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
		fmt.Sprintf("%d occurrences", n), trace)
}

// assertFinalOrder compares one container's order on the final board.
// "$columns" names the column order.
func assertFinalOrder(final board.State, a Assertion) error {
	c := board.ContainerID(a.Container)

	var got []string
	switch {
	case c == board.ColumnsID:
		for _, col := range final.Columns {
			got = append(got, string(col))
		}
	case slices.Contains(final.Columns, c):
		for _, it := range final.Items[c] {
			got = append(got, string(it))
		}
	default:
		return failure(AssertFinalOrder, "container "+a.Container, "container not on the final board")
	}

	if len(got) == 0 && len(a.Items) == 0 {
		return nil
	}
	if !slices.Equal(got, a.Items) {
		return failure(AssertFinalOrder,
			fmt.Sprintf("%s = %v", a.Container, a.Items),
			fmt.Sprintf("%s = %v", a.Container, got))
	}
	return nil
}

func assertCommits(got []testutil.Call, a Assertion) error {
	if len(got) == 0 && len(a.Calls) == 0 {
		return nil
	}
	if slices.Equal(got, a.Calls) {
		return nil
	}
	return failure(AssertCommits, fmt.Sprintf("%+v", a.Calls), fmt.Sprintf("%+v", got))
}

// assertFinalState selects exactly one journal row matching Where and
// checks the Expect fields against it.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	columns, ok := journalColumns[a.Table]
	if !ok {
		return fmt.Errorf("unknown journal table %q (want one of %s)",
			a.Table, strings.Join(slices.Sorted(maps.Keys(journalColumns)), ", "))
	}
	for _, key := range slices.Sorted(maps.Keys(a.Expect)) {
		if !slices.Contains(columns, key) {
			return failure(AssertFinalState,
				fmt.Sprintf("field %q", key),
				fmt.Sprintf("field %q is not a column of %s %v", key, a.Table, columns))
		}
	}

	query, args, err := selectRow(a.Table, columns, a.Where)
	if err != nil {
		return err
	}
	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return failure(AssertFinalState, "query "+a.Table, err.Error())
	}
	defer rows.Close()

	filter := describeWhere(a.Where)
	if !rows.Next() {
		return failure(AssertFinalState,
			fmt.Sprintf("row in %s where %s", a.Table, filter), "row not found")
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan %s: %w", a.Table, err)
	}
	if rows.Next() {
		return failure(AssertFinalState,
			fmt.Sprintf("exactly one row in %s where %s", a.Table, filter),
			"several rows matched")
	}

	for _, key := range slices.Sorted(maps.Keys(a.Expect)) {
		want := a.Expect[key]
		got := values[slices.Index(columns, key)]
		if !sameStored(want, got) {
			return failure(AssertFinalState,
				fmt.Sprintf("field %q = %v", key, want),
				fmt.Sprintf("field %q = %v", key, normalize(got)))
		}
	}
	return nil
}

// selectRow builds a parameterized SELECT over the listed columns. Filter
// keys must be columns of the table.
func selectRow(table string, columns []string, where map[string]any) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, key := range slices.Sorted(maps.Keys(where)) {
		if !slices.Contains(columns, key) {
			return "", nil, fmt.Errorf("where: %q is not a column of %s", key, table)
		}
		clauses = append(clauses, key+" = ?")
		args = append(args, sqlArg(where[key]))
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + table
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return query, args, nil
}

func sqlArg(v any) any {
	switch v := v.(type) {
	case string, int, int64, float64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return fmt.Sprint(v)
	}
}

func describeWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range slices.Sorted(maps.Keys(where)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// sameStored compares a YAML value with a SQLite column value. SQLite has
// no boolean type, so an expected bool matches 0 or 1.
func sameStored(want, got any) bool {
	if b, ok := want.(bool); ok {
		want = 0
		if b {
			want = 1
		}
	}
	return sameValue(normalize(got), want)
}

// matchArgs reports whether actual carries every expected key with an
// equal value. Extra keys are ignored.
func matchArgs(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

// sameValue compares numbers by value, since YAML decodes whole numbers as
// int while pointer coordinates and SQLite integers arrive as float64 or
// int64.
func sameValue(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if x, ok := a.(float64); ok {
		y, ok := b.(float64)
		return ok && x == y
	}
	return reflect.DeepEqual(a, b)
}

func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	}
	return v
}

// AssertionContext carries what the assertions check besides the trace.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	Persister *testutil.RecordingPersister
	Final     board.State
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalOrder:
		return assertFinalOrder(actx.Final, a)
	case AssertCommits:
		if actx.Persister == nil {
			return fmt.Errorf("commits requires a recording persister")
		}
		return assertCommits(actx.Persister.Calls(), a)
	case AssertFinalState:
		if actx.Store == nil {
			return fmt.Errorf("final_state requires a journal")
		}
		return assertFinalState(actx.Ctx, actx.Store, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
