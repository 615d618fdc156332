package domain

import "testing"

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusCreated, StatusGeneratingVideos, true},
		{StatusCreated, StatusInProgress, false},
		{StatusCreated, StatusFailed, false},
		{StatusGeneratingVideos, StatusInProgress, true},
		{StatusGeneratingVideos, StatusFailed, true},
		{StatusGeneratingVideos, StatusProcessing, false},
		{StatusGeneratingVideos, StatusCompleted, false},
		{StatusInProgress, StatusProcessing, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusCompleted, false},
		{StatusInProgress, StatusGeneratingVideos, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusInProgress, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusInProgress, false},
		{StatusFailed, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusGeneratingVideos, StatusInProgress, StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
}

func TestStatus_IsValid(t *testing.T) {
	if !StatusProcessing.IsValid() {
		t.Error("PROCESSING should be valid")
	}
	if Status("ARCHIVED").IsValid() {
		t.Error("ARCHIVED should not be valid")
	}
}

func TestCategory_Difficulty_IsValid(t *testing.T) {
	if !CategoryBehavioral.IsValid() || !DifficultyHard.IsValid() {
		t.Error("known enum values should be valid")
	}
	if Category("technical").IsValid() {
		t.Error("lowercase category should not be valid; normalization happens before validation")
	}
	if Difficulty("IMPOSSIBLE").IsValid() {
		t.Error("unknown difficulty should not be valid")
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{78, 78},
		{100, 100},
		{140, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
