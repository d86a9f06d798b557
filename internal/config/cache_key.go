package config

import "fmt"

// CacheKeyStruct namespaces every Redis key the service touches.
type CacheKeyStruct struct{}

// AttemptStartKey returns the cache key holding an attempt's start unix time.
// Used as the resume fast path; Postgres stays the source of truth.
func (r *CacheKeyStruct) AttemptStartKey(examID, studentID string) string {
	return fmt.Sprintf("student:%s:exam:%s:attempt_start", studentID, examID)
}

// ExamDurationKey returns the cache key for an exam's duration in minutes.
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel carrying live session
// events for proctors watching an exam.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

// StudentDeviceKey returns the key binding a student to the token (jti) of
// the device they are taking exams on.
func (r *CacheKeyStruct) StudentDeviceKey(studentID string) string {
	return fmt.Sprintf("student:%s:device", studentID)
}

var CacheKey = &CacheKeyStruct{}
