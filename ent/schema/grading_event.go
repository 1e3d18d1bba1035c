package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GradingEvent records one graded learner turn and the level change it
// caused.
type GradingEvent struct {
	ent.Schema
}

func (GradingEvent) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "grading_events"}}
}

func (GradingEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (GradingEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("UUID"),
		field.String("learner_id").
			NotEmpty(),
		field.String("module_id").
			NotEmpty(),
		field.String("question_id").
			NotEmpty(),
		field.String("verdict").
			Comment("Grader verdict text"),
		field.Bool("correct"),
		field.Int("level_before"),
		field.Int("level_after"),
		field.Int("points_awarded").
			Default(0),
		field.JSON("answers", []string{}).
			Comment("Learner answers, one per blank"),
		field.JSON("similarities", []float64{}).
			Comment("Best similarity per blank"),
	}
}

func (GradingEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("learner_id", "sequence"),
	}
}
