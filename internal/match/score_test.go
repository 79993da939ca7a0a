package match

import "testing"

func TestScoreWorkedExample(t *testing.T) {
	student := MatchProfile{
		Subjects:     stringList{"Mathematics", "Biology"},
		Competitions: stringList{"USACO"},
	}
	consultant := MatchProfile{
		Subjects:     stringList{"Mathematics", "Computer Science"},
		Competitions: stringList{"USACO"},
	}

	got := Score(student, &consultant, "Mathematics")
	if got != 65 {
		t.Fatalf("unexpected score: got %v want 65", got)
	}
}

func TestScoreMissingConsultantProfile(t *testing.T) {
	student := MatchProfile{Subjects: stringList{"Mathematics"}}
	if got := Score(student, nil, "Mathematics"); got != 0 {
		t.Fatalf("missing consultant profile must score 0, got %v", got)
	}
}

func TestScoreTerms(t *testing.T) {
	tests := []struct {
		name       string
		student    MatchProfile
		consultant MatchProfile
		major      string
		want       float64
	}{
		{
			name:       "applied-major-only",
			consultant: MatchProfile{Subjects: stringList{"Physics"}},
			major:      "Physics",
			want:       40,
		},
		{
			name:       "no-overlap",
			student:    MatchProfile{Subjects: stringList{"History"}},
			consultant: MatchProfile{Subjects: stringList{"Physics"}},
			major:      "Economics",
			want:       0,
		},
		{
			name:       "shared-activity",
			student:    MatchProfile{Activities: stringList{"Debate", "Robotics"}},
			consultant: MatchProfile{Activities: stringList{"Robotics"}},
			want:       5,
		},
		{
			name:       "both-research",
			student:    MatchProfile{HasPublishedResearch: true},
			consultant: MatchProfile{HasPublishedResearch: true},
			want:       10,
		},
		{
			name:       "research-one-sided",
			student:    MatchProfile{HasPublishedResearch: true},
			consultant: MatchProfile{},
			want:       0,
		},
		{
			name:       "first-generation",
			student:    MatchProfile{IsFirstGeneration: true},
			consultant: MatchProfile{IsFirstGeneration: true},
			want:       5,
		},
		{
			name:       "demographics",
			student:    MatchProfile{IncomeBracket: "under_50k", CitizenshipStatus: "us_citizen", IsUnderrepresented: true},
			consultant: MatchProfile{IncomeBracket: "under_50k", CitizenshipStatus: "us_citizen", IsUnderrepresented: true},
			want:       8,
		},
		{
			name:       "empty-income-never-matches",
			student:    MatchProfile{},
			consultant: MatchProfile{},
			want:       0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.student, &tt.consultant, tt.major); got != tt.want {
				t.Fatalf("unexpected score: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestScoreClampedToHundred(t *testing.T) {
	subjects := stringList{"A", "B", "C", "D", "E"}
	competitions := stringList{"X", "Y", "Z"}
	student := MatchProfile{
		Subjects:             subjects,
		Competitions:         competitions,
		HasPublishedResearch: true,
	}
	consultant := MatchProfile{
		Subjects:             subjects,
		Competitions:         competitions,
		HasPublishedResearch: true,
	}

	// 40 + 5*15 + 3*10 + 10 = 155 before clamping.
	if got := Score(student, &consultant, "A"); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
}

func TestAppliedMajorFallsBackToCategory(t *testing.T) {
	withName := CollegeApplication{MajorCategory: "STEM", MajorName: "Mathematics"}
	if got := appliedMajor(withName); got != "Mathematics" {
		t.Fatalf("unexpected applied major: %q", got)
	}
	withoutName := CollegeApplication{MajorCategory: "STEM"}
	if got := appliedMajor(withoutName); got != "STEM" {
		t.Fatalf("expected category fallback, got %q", got)
	}
}
