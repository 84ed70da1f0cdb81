package service

import "errors"

// Actor roles recognized by the workflow. Role resolution happens upstream;
// services only check the fixed allowed-actor predicate per operation.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Actor is the pre-authorized identity performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsEvaluator reports whether the actor may record feedback and grades.
func (a Actor) IsEvaluator() bool {
	return a.Role == RoleTeacher || a.Role == RoleAdmin
}

// IsAdmin reports whether the actor may record verification decisions and
// administrative status marks.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ErrSlotLocked indicates the iteration gate denies opening or writing a
// further iteration for the slot.
var ErrSlotLocked = errors.New("slot is locked for further iterations")

// ErrEmptyContent indicates submission content was blank after normalization.
var ErrEmptyContent = errors.New("content is empty")

// ErrSubmissionLocked indicates the submission status forbids learner edits.
var ErrSubmissionLocked = errors.New("submission is locked")

// ErrUnauthorized indicates the actor may not invoke the requested transition.
var ErrUnauthorized = errors.New("actor is not allowed to perform this action")

// ErrConcurrentModification indicates an optimistic check failed after the
// transparent retry.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// ErrAssignmentNotFound indicates the assignment could not be found.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrSubmissionNotFound indicates the submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSlotNotFound indicates the answer slot could not be found.
var ErrSlotNotFound = errors.New("answer slot not found")

// ErrIterationNotFound indicates the iteration could not be found.
var ErrIterationNotFound = errors.New("iteration not found")

// ErrFeedbackNotFound indicates no feedback entry exists for the iteration.
var ErrFeedbackNotFound = errors.New("feedback not found")
