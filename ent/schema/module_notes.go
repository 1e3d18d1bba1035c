package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
)

// ModuleNotes caches generated study notes per module.
type ModuleNotes struct {
	ent.Schema
}

func (ModuleNotes) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "module_notes"}}
}

func (ModuleNotes) Fields() []ent.Field {
	return []ent.Field{
		field.String("module_id").
			Unique().
			Immutable(),
		field.Text("content").
			Comment("HTML notes"),
		field.String("model").
			Default("").
			Comment("Model that generated the notes"),
		field.Time("created_at"),
	}
}
