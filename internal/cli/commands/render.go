package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tinyquery/internal/cli/output"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// renderPlan prints a compiled query: the plan tree and its result scope.
func renderPlan(r *output.Renderer, sel *plan.Select) error {
	if r.EffectiveMode() == output.ModeJSON {
		data, err := plan.MarshalSelect(sel)
		if err != nil {
			return err
		}
		return r.RawJSON(data)
	}

	r.Header("Plan")
	r.Println(plan.Explain(sel))
	r.Header("Result scope")
	renderScope(r, sel.Scope)
	return nil
}

func renderScope(r *output.Renderer, s *plan.Scope) {
	cols := s.Columns()
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = []string{c.Table, c.Name, c.Type.String()}
	}
	r.Table([]string{"table", "name", "type"}, rows)

	if implicit := s.Implicit(); implicit != nil && implicit.Len() > 0 {
		r.Println(r.Muted("implicit: " + implicit.String()))
	}
}

// entryInfo is the JSON form of a catalog entry.
type entryInfo struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Columns []catalog.Column `json:"columns,omitempty"`
	Query   string           `json:"query,omitempty"`
}

func describeEntry(e catalog.Entry) entryInfo {
	switch en := e.(type) {
	case *catalog.Table:
		return entryInfo{Name: en.Name, Kind: "table", Columns: en.Columns}
	case *catalog.View:
		return entryInfo{Name: en.Name, Kind: "view", Query: en.Query}
	default:
		return entryInfo{Name: e.EntryName(), Kind: "unknown"}
	}
}

func renderEntries(r *output.Renderer, entries []catalog.Entry) error {
	infos := make([]entryInfo, len(entries))
	for i, e := range entries {
		infos[i] = describeEntry(e)
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		detail := info.Query
		if info.Kind == "table" {
			names := make([]string, len(info.Columns))
			for j, c := range info.Columns {
				names[j] = c.Name + " " + c.Type.String()
			}
			detail = strings.Join(names, ", ")
		}
		rows[i] = []string{info.Name, info.Kind, detail}
	}
	r.Header(fmt.Sprintf("Catalog (%d entries)", len(infos)))
	r.Table([]string{"name", "kind", "definition"}, rows)
	return nil
}

func renderEntry(r *output.Renderer, e catalog.Entry) error {
	info := describeEntry(e)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(info.Name)
	r.KeyValue("kind", info.Kind)
	if info.Kind == "view" {
		r.KeyValue("query", info.Query)
		return nil
	}
	rows := make([][]string, len(info.Columns))
	for i, c := range info.Columns {
		rows[i] = []string{c.Name, c.Type.String()}
	}
	r.Table([]string{"column", "type"}, rows)
	return nil
}
