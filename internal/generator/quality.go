package generator

const (
	QualityReject  = "reject"
	QualityFlagged = "flagged"
	QualityPassed  = "passed"
)

// StructuralScore holds the individual structural checks for one draft.
type StructuralScore struct {
	QuestionLengthOK   bool
	AllOptionsInRange  bool
	ExplanationPresent bool
	AnswerDistribOK    bool
}

// ComputeStructuralScore evaluates a single draft. AnswerDistribOK is a
// batch-level property and is left true here.
func ComputeStructuralScore(d Draft) StructuralScore {
	qLen := len(d.Question)

	optionsOK := true
	for _, o := range d.Options {
		if len(o) == 0 || len(o) > 200 {
			optionsOK = false
		}
	}

	return StructuralScore{
		QuestionLengthOK:   qLen >= 15 && qLen <= 600,
		AllOptionsInRange:  optionsOK,
		ExplanationPresent: d.Explanation != "",
		AnswerDistribOK:    true,
	}
}

func (s StructuralScore) value() float64 {
	v := 0.0
	for _, ok := range []bool{s.QuestionLengthOK, s.AllOptionsInRange, s.ExplanationPresent, s.AnswerDistribOK} {
		if ok {
			v += 0.25
		}
	}
	return v
}

// AnswerDistributionOK reports whether no single answer position holds more
// than half of a batch of four or more drafts.
func AnswerDistributionOK(drafts []Draft) bool {
	if len(drafts) < 4 {
		return true
	}
	counts := make(map[int]int)
	for _, d := range drafts {
		counts[d.CorrectAnswer]++
	}
	for _, c := range counts {
		if c*2 > len(drafts) {
			return false
		}
	}
	return true
}

// ComputeQualityScore calculates a composite quality score (0.0-1.0).
//
// Formula: verification * 0.60 + structural * 0.40. An unverified draft
// scores 0.5 on verification; a verifier disagreement scores 0.
func ComputeQualityScore(v *Verification, structural StructuralScore) float64 {
	verification := 0.5
	if v != nil {
		switch {
		case !v.Matches:
			verification = 0.0
		case v.Confidence == "high":
			verification = 1.0
		case v.Confidence == "medium":
			verification = 0.7
		default:
			verification = 0.4
		}
	}
	return verification*0.60 + structural.value()*0.40
}

// ClassifyQuality returns "reject" (< 0.50), "flagged" (0.50-0.70) or
// "passed" (> 0.70).
func ClassifyQuality(score float64) string {
	if score < 0.50 {
		return QualityReject
	}
	if score <= 0.70 {
		return QualityFlagged
	}
	return QualityPassed
}
