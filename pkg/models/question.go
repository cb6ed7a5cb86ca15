package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionKind represents the answer format a question accepts
type QuestionKind string

const (
	QuestionKindText         QuestionKind = "text"
	QuestionKindSingleChoice QuestionKind = "single_choice"
	QuestionKindScale        QuestionKind = "scale"
	QuestionKindYesNo        QuestionKind = "yes_no"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionKindText, QuestionKindSingleChoice, QuestionKindScale, QuestionKindYesNo:
		return true
	}
	return false
}

// Scale bounds must stay inside this range.
const (
	ScaleFloor   = 1
	ScaleCeiling = 10
)

// QuestionTemplate is the live, editable questionnaire entry for a review
// type. Editing a template never touches reviews already created.
type QuestionTemplate struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ReviewTypeID  int              `db:"review_type_id" json:"review_type_id"`
	Position      int              `db:"position" json:"position"`
	Prompt        string           `db:"prompt" json:"prompt"`
	Kind          QuestionKind     `db:"kind" json:"kind"`
	Required      bool             `db:"required" json:"required"`
	ScaleMin      *int             `db:"scale_min" json:"scale_min,omitempty"`
	ScaleMax      *int             `db:"scale_max" json:"scale_max,omitempty"`
	ScaleMinLabel *string          `db:"scale_min_label" json:"scale_min_label,omitempty"`
	ScaleMaxLabel *string          `db:"scale_max_label" json:"scale_max_label,omitempty"`
	Active        bool             `db:"active" json:"active"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
	Options       []TemplateOption `db:"-" json:"options,omitempty"`
}

// TableName returns the database table name
func (QuestionTemplate) TableName() string {
	return "question_templates"
}

// TemplateOption is one choice of a single-choice template question.
type TemplateOption struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TemplateID uuid.UUID `db:"template_id" json:"template_id"`
	Position   int       `db:"position" json:"position"`
	Label      string    `db:"label" json:"label"`
}

// TableName returns the database table name
func (TemplateOption) TableName() string {
	return "template_options"
}

// ReviewQuestion is the frozen copy of a template question taken when its
// review was created. Snapshots are never updated.
type ReviewQuestion struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ReviewID      uuid.UUID        `db:"review_id" json:"review_id"`
	Position      int              `db:"position" json:"position"`
	Prompt        string           `db:"prompt" json:"prompt"`
	Kind          QuestionKind     `db:"kind" json:"kind"`
	Required      bool             `db:"required" json:"required"`
	ScaleMin      *int             `db:"scale_min" json:"scale_min,omitempty"`
	ScaleMax      *int             `db:"scale_max" json:"scale_max,omitempty"`
	ScaleMinLabel *string          `db:"scale_min_label" json:"scale_min_label,omitempty"`
	ScaleMaxLabel *string          `db:"scale_max_label" json:"scale_max_label,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	Options       []QuestionOption `db:"-" json:"options,omitempty"`
}

// TableName returns the database table name
func (ReviewQuestion) TableName() string {
	return "review_questions"
}

// OptionByID finds a snapshot option by id.
func (q *ReviewQuestion) OptionByID(id uuid.UUID) (QuestionOption, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return QuestionOption{}, false
}

// QuestionOption is one frozen choice of a snapshot question.
type QuestionOption struct {
	ID         uuid.UUID `db:"id" json:"id"`
	QuestionID uuid.UUID `db:"question_id" json:"question_id"`
	Position   int       `db:"position" json:"position"`
	Label      string    `db:"label" json:"label"`
}

// TableName returns the database table name
func (QuestionOption) TableName() string {
	return "review_question_options"
}
