package model

import (
	"time"

	"github.com/google/uuid"
)

// Assignment links one exam to one student. At most one assignment exists
// per (exam, student) pair; assigning twice returns the existing record.
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  string    `json:"student_id"`
	Required   bool      `json:"required"`
	AssignedBy string    `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AssignRequest is the payload for assigning an exam to a student.
type AssignRequest struct {
	StudentID string `json:"student_id" binding:"required,min=1,max=64"`
	Required  *bool  `json:"required" binding:"omitempty"`
}

// UnassignRequest is the payload for removing an exam assignment.
type UnassignRequest struct {
	StudentID string `json:"student_id" binding:"required,min=1,max=64"`
}

// AssignedExam is an exam joined with the assignment that grants it.
type AssignedExam struct {
	Exam       Exam       `json:"exam"`
	Assignment Assignment `json:"assignment"`
}
