package generator

import (
	"math"
	"testing"
)

var fullStructure = StructuralScore{
	QuestionLengthOK:   true,
	AllOptionsInRange:  true,
	ExplanationPresent: true,
	AnswerDistribOK:    true,
}

func TestComputeQualityScore(t *testing.T) {
	tests := []struct {
		name       string
		v          *Verification
		structural StructuralScore
		want       float64
	}{
		// 1.0*0.60 + 1.0*0.40
		{"verified high", &Verification{Matches: true, Confidence: "high"}, fullStructure, 1.0},
		// 0.7*0.60 + 1.0*0.40
		{"verified medium", &Verification{Matches: true, Confidence: "medium"}, fullStructure, 0.82},
		// 0.4*0.60 + 1.0*0.40
		{"verified low", &Verification{Matches: true, Confidence: "low"}, fullStructure, 0.64},
		// 0.0*0.60 + 1.0*0.40
		{"disagreement", &Verification{Matches: false, Confidence: "high"}, fullStructure, 0.40},
		// 0.5*0.60 + 1.0*0.40
		{"unverified", nil, fullStructure, 0.70},
		// 0.5*0.60 + 0.5*0.40
		{"half structure", nil, StructuralScore{QuestionLengthOK: true, ExplanationPresent: true}, 0.50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeQualityScore(tt.v, tt.structural); !almostEqual(got, tt.want) {
				t.Errorf("score = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestClassifyQuality(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.0, QualityReject},
		{0.49, QualityReject},
		{0.50, QualityFlagged},
		{0.70, QualityFlagged},
		{0.71, QualityPassed},
		{1.0, QualityPassed},
	}
	for _, tt := range tests {
		if got := ClassifyQuality(tt.score); got != tt.want {
			t.Errorf("ClassifyQuality(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestComputeStructuralScore(t *testing.T) {
	good := validDrafts(1)[0]
	if s := ComputeStructuralScore(good); s != fullStructure {
		t.Errorf("valid draft scored %+v", s)
	}

	bad := Draft{Question: "Why?", Options: []string{"", "b"}, CorrectAnswer: 1}
	s := ComputeStructuralScore(bad)
	if s.QuestionLengthOK || s.AllOptionsInRange || s.ExplanationPresent {
		t.Errorf("bad draft scored %+v", s)
	}
}

func TestAnswerDistributionOK(t *testing.T) {
	spread := validDrafts(4)
	if !AnswerDistributionOK(spread) {
		t.Error("answers 1-4 should be balanced")
	}

	clustered := validDrafts(4)
	for i := range clustered[:3] {
		clustered[i].CorrectAnswer = 2
	}
	if AnswerDistributionOK(clustered) {
		t.Error("3 of 4 answers at one position should fail")
	}

	if !AnswerDistributionOK(clustered[:3]) {
		t.Error("small batches are not checked")
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}
