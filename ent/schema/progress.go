package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Progress is the mutable per-learner, per-module adaptive state. Rows are
// keyed by (learner_id, module_id).
type Progress struct {
	ent.Schema
}

func (Progress) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "progress"}}
}

func (Progress) Fields() []ent.Field {
	return []ent.Field{
		field.String("learner_id").
			NotEmpty(),
		field.String("module_id").
			NotEmpty(),
		field.Int("level").
			Comment("Current difficulty level"),
		field.Int("at_level").
			Default(0).
			Comment("Answers since the last level change"),
		field.Int("total").
			Default(0),
		field.Int("correct").
			Default(0),
		field.Int("streak").
			Default(0).
			Comment("Consecutive correct answers"),
		field.Int("points").
			Default(0),
		field.String("outstanding").
			Default("").
			Comment("ID of the question awaiting an answer"),
		field.JSON("recent", []string{}).
			Comment("Recently served question IDs, oldest first"),
		field.Time("updated_at"),
		field.Int64("version").
			Default(1).
			Comment("Write counter for compare-and-swap updates"),
	}
}

func (Progress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("learner_id", "module_id").Unique(),
	}
}
