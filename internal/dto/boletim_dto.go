package dto

// BoletimSubject is one graded subject line on a report card.
type BoletimSubject struct {
	SubjectID   uint    `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	Value       float64 `json:"value"`
}

// BoletimResponse is a student's report card for one trimester. It is derived
// on every request and never stored. Average carries the display rounding;
// the verdict is decided before rounding.
type BoletimResponse struct {
	StudentID   uint             `json:"student_id"`
	StudentName string           `json:"student_name"`
	Trimester   int              `json:"trimester"`
	Subjects    []BoletimSubject `json:"subjects"`
	Average     float64          `json:"average"`
	Verdict     string           `json:"verdict"`
}
