package segmenter

import "strings"

// Subjects a question can be filed under.
const (
	SubjectPhysics   = "Physics"
	SubjectChemistry = "Chemistry"
	SubjectBiology   = "Biology"
	SubjectMath      = "Math"
	SubjectGeneral   = "General"
)

// subjectKeywords are checked in priority order.
var subjectKeywords = []struct {
	keyword string
	subject string
}{
	{"physics", SubjectPhysics},
	{"chemistry", SubjectChemistry},
	{"biology", SubjectBiology},
}

// DetectSubject files text under the first subject whose name occurs in it,
// case-insensitively, or General. Math is only ever assigned by callers.
func DetectSubject(text string) string {
	lower := strings.ToLower(text)
	for _, sk := range subjectKeywords {
		if strings.Contains(lower, sk.keyword) {
			return sk.subject
		}
	}
	return SubjectGeneral
}
