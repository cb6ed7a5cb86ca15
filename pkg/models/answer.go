package models

import (
	"time"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/google/uuid"
)

// Answer is one respondent's answer to one snapshot question. Prompt, kind
// and options are denormalized at answer time so the record stays readable
// even against historic questionnaires.
type Answer struct {
	ID               uuid.UUID                        `db:"id" json:"id"`
	ReviewID         uuid.UUID                        `db:"review_id" json:"review_id"`
	QuestionID       uuid.UUID                        `db:"question_id" json:"question_id"`
	Role             RespondentRole                   `db:"role" json:"role"`
	Prompt           string                           `db:"prompt" json:"prompt"`
	Kind             QuestionKind                     `db:"kind" json:"kind"`
	Options          database.JSONB[[]QuestionOption] `db:"options" json:"options"`
	Value            string                           `db:"value" json:"value"`
	SelectedOptionID *uuid.UUID                       `db:"selected_option_id" json:"selected_option_id,omitempty"`
	AnsweredBy       uuid.UUID                        `db:"answered_by" json:"answered_by"`
	AnsweredAt       time.Time                        `db:"answered_at" json:"answered_at"`
}

// TableName returns the database table name
func (Answer) TableName() string {
	return "review_answers"
}

// AnswerSet groups a review's stored answers by role, keyed by snapshot
// question id, alongside the ordered question list.
type AnswerSet struct {
	ReviewID  uuid.UUID                `json:"review_id"`
	Questions []ReviewQuestion         `json:"questions"`
	Employee  map[uuid.UUID]Answer     `json:"employee"`
	Manager   map[uuid.UUID]Answer     `json:"manager"`
}

// AnswerSubmission is one incoming answer in a submission payload.
type AnswerSubmission struct {
	QuestionID       uuid.UUID  `json:"question_id" validate:"required"`
	Value            string     `json:"value"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id,omitempty"`
}
