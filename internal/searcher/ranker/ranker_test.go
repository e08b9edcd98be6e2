package ranker

import (
	"math"
	"testing"
)

func TestScoreRewardsFrequency(t *testing.T) {
	stats := FieldStats{TotalDocs: 100, AvgLength: 10}
	once := Score(1, 5, 10, stats)
	twice := Score(2, 5, 10, stats)
	if !(twice > once) || once <= 0 {
		t.Errorf("Score(tf=1) = %v, Score(tf=2) = %v", once, twice)
	}
}

func TestScoreRewardsRarity(t *testing.T) {
	stats := FieldStats{TotalDocs: 100, AvgLength: 10}
	rare := Score(1, 1, 10, stats)
	common := Score(1, 90, 10, stats)
	if !(rare > common) {
		t.Errorf("rare %v should beat common %v", rare, common)
	}
}

func TestScorePenalisesLength(t *testing.T) {
	stats := FieldStats{TotalDocs: 100, AvgLength: 10}
	short := Score(1, 5, 5, stats)
	long := Score(1, 5, 40, stats)
	if !(short > long) {
		t.Errorf("short %v should beat long %v", short, long)
	}
}

func TestScoreDegenerate(t *testing.T) {
	if got := Score(0, 5, 10, FieldStats{TotalDocs: 10, AvgLength: 5}); got != 0 {
		t.Errorf("tf=0 score = %v", got)
	}
	if got := Score(1, 1, 1, FieldStats{TotalDocs: 1, AvgLength: 0}); got != 0 {
		t.Errorf("zero avg length score = %v", got)
	}
	if got := Score(1, 1, 1, FieldStats{TotalDocs: 1, AvgLength: 1}); got <= 0 || math.IsNaN(got) {
		t.Errorf("single-doc score = %v, want positive", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.234567); got != 1.2346 {
		t.Errorf("Round = %v", got)
	}
}
