package match

const (
	weightAppliedMajor    = 40.0
	weightSharedSubject   = 15.0
	weightSharedCompetion = 10.0
	weightSharedActivity  = 5.0
	weightBothResearch    = 10.0
	weightBothFirstGen    = 5.0
	weightIncomeMatch     = 3.0
	weightCitizenship     = 2.0
	weightUnderrepresent  = 3.0

	maxScore = 100.0
)

// Score computes the weighted match score between a student's and a
// consultant's quiz profiles for one applied major. A nil consultant
// profile scores zero. The result is clamped to [0, 100]. Scoring never
// fails; empty fields simply contribute nothing.
func Score(student MatchProfile, consultant *MatchProfile, appliedMajor string) float64 {
	if consultant == nil {
		return 0
	}

	subjects := asSet(consultant.Subjects)
	competitions := asSet(consultant.Competitions)
	activities := asSet(consultant.Activities)

	score := 0.0
	if appliedMajor != "" && subjects[appliedMajor] {
		score += weightAppliedMajor
	}
	for _, subject := range student.Subjects {
		if subjects[subject] {
			score += weightSharedSubject
		}
	}
	for _, competition := range student.Competitions {
		if competitions[competition] {
			score += weightSharedCompetion
		}
	}
	for _, activity := range student.Activities {
		if activities[activity] {
			score += weightSharedActivity
		}
	}
	if student.HasPublishedResearch && consultant.HasPublishedResearch {
		score += weightBothResearch
	}
	if student.IsFirstGeneration && consultant.IsFirstGeneration {
		score += weightBothFirstGen
	}
	if student.IncomeBracket != "" && student.IncomeBracket == consultant.IncomeBracket {
		score += weightIncomeMatch
	}
	if student.CitizenshipStatus != "" && student.CitizenshipStatus == consultant.CitizenshipStatus {
		score += weightCitizenship
	}
	if student.IsUnderrepresented && consultant.IsUnderrepresented {
		score += weightUnderrepresent
	}

	if score > maxScore {
		return maxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// appliedMajor resolves the display name the +40 term matches against: the
// application's explicit major name, or its category name when none was
// recorded.
func appliedMajor(application CollegeApplication) string {
	if application.MajorName != "" {
		return application.MajorName
	}
	return application.MajorCategory
}

func asSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}
	return set
}
