package schema

import (
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/tabula/dialect"
)

// AtlasTable converts a backend-native table descriptor into the atlas
// schema types, the shape an external diffing/migration tool imports.
// Partial-index predicates export as the dialect's index-predicate
// attribute where one exists, and degrade to a comment elsewhere. Raw
// columns and raw indexes degrade to their string form; the engine
// never diffs schemas or applies DDL itself.
func AtlasTable(t *Table) *atlas.Table {
	at := &atlas.Table{Name: t.Name}
	byName := make(map[string]*atlas.Column, len(t.Columns))
	for _, c := range t.Columns {
		ac := &atlas.Column{
			Name: c.Name,
			Type: &atlas.ColumnType{Raw: c.Type, Null: c.Nullable},
		}
		if c.Default != "" {
			ac.Default = &atlas.RawExpr{X: c.Default}
		}
		at.Columns = append(at.Columns, ac)
		byName[c.Name] = ac
	}
	if len(t.PrimaryKey) > 0 {
		pk := &atlas.Index{Unique: true, Table: at}
		for i, c := range t.PrimaryKey {
			pk.Parts = append(pk.Parts, &atlas.IndexPart{SeqNo: i, C: byName[c.Name]})
		}
		at.PrimaryKey = pk
	}
	for _, idx := range t.Indexes {
		ai := &atlas.Index{Name: idx.Name, Unique: idx.Unique, Table: at}
		for i, c := range idx.Columns {
			ai.Parts = append(ai.Parts, &atlas.IndexPart{SeqNo: i, C: byName[c.Name]})
		}
		if idx.Where != "" {
			switch t.Dialect {
			case dialect.Postgres:
				ai.Attrs = append(ai.Attrs, &postgres.IndexPredicate{P: idx.Where})
			case dialect.SQLite, dialect.Memory:
				ai.Attrs = append(ai.Attrs, &sqlite.IndexPredicate{P: idx.Where})
			default:
				ai.Attrs = append(ai.Attrs, &atlas.Comment{Text: "WHERE " + idx.Where})
			}
		}
		at.Indexes = append(at.Indexes, ai)
	}
	return at
}

// AtlasTables converts multiple table descriptors.
func AtlasTables(tables ...*Table) []*atlas.Table {
	out := make([]*atlas.Table, len(tables))
	for i, t := range tables {
		out[i] = AtlasTable(t)
	}
	return out
}
