package entity

import "time"

const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer-not-to-say"
)

var Genders = []string{GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay}

const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceExperienced  = "experienced"
)

var ExperienceLevels = []string{ExperienceBeginner, ExperienceIntermediate, ExperienceExperienced}

// Worker levels are derived by the gig subsystems; registration always starts at beginner.
const (
	LevelBeginner     = "beginner"
	LevelVolunteer    = "volunteer"
	LevelRegular      = "regular"
	LevelProfessional = "professional"
	LevelExpert       = "expert"
)

const (
	// MinWorkerAge is the minimum age in whole years at registration time.
	MinWorkerAge = 18
	// MaxBioLength is measured in characters, not bytes.
	MaxBioLength = 500
)

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type Badge struct {
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	AwardedBy   string    `json:"awardedBy"`
	AwardedAt   time.Time `json:"awardedAt"`
	Description string    `json:"description"`
}

type WorkerStatistics struct {
	TotalGigsApplied     int     `json:"totalGigsApplied"`
	TotalGigsCompleted   int     `json:"totalGigsCompleted"`
	TotalGigsCancelled   int     `json:"totalGigsCancelled"`
	TotalEarnings        float64 `json:"totalEarnings"`
	CurrentMonthEarnings float64 `json:"currentMonthEarnings"`
}

type RatingBreakdown struct {
	Professionalism float64 `json:"professionalism"`
	Communication   float64 `json:"communication"`
	SkillLevel      float64 `json:"skillLevel"`
}

type WorkerRatings struct {
	Average   float64         `json:"average"`
	Total     int             `json:"total"`
	Breakdown RatingBreakdown `json:"breakdown"`
}

type Availability struct {
	IsAvailable     bool     `json:"isAvailable"`
	PreferredDays   []string `json:"preferredDays"`
	PreferredShifts []string `json:"preferredShifts"`
}

// WorkerProfile is the worker-side record linked 1:1 to a user.
type WorkerProfile struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	DateOfBirth      time.Time        `json:"dateOfBirth"`
	Gender           string           `json:"gender"`
	Location         Location         `json:"location"`
	Skills           []string         `json:"skills"`
	ExperienceLevel  string           `json:"experienceLevel"`
	Bio              string           `json:"bio"`
	Badges           []Badge          `json:"badges"`
	Statistics       WorkerStatistics `json:"statistics"`
	Ratings          WorkerRatings    `json:"ratings"`
	ReliabilityScore int              `json:"reliabilityScore"`
	CurrentLevel     string           `json:"currentLevel"`
	Availability     Availability     `json:"availability"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NewWorkerProfile builds the initial worker record with the registration defaults.
func NewWorkerProfile(id, userID string, dob time.Time, gender string, loc Location, skills []string, experience, bio string) *WorkerProfile {
	if experience == "" {
		experience = ExperienceBeginner
	}
	return &WorkerProfile{
		ID:              id,
		UserID:          userID,
		DateOfBirth:     dob,
		Gender:          gender,
		Location:        loc,
		Skills:          skills,
		ExperienceLevel: experience,
		Bio:             bio,
		Badges:          []Badge{},
		CurrentLevel:    LevelBeginner,
		Availability: Availability{
			IsAvailable:     true,
			PreferredDays:   []string{},
			PreferredShifts: []string{},
		},
	}
}

// AgeOn returns the age in whole years at the given instant: the calendar year
// difference, minus one if the birthday has not yet come round that year.
func AgeOn(dob, now time.Time) int {
	dy, dm, dd := dob.Date()
	ny, nm, nd := now.In(dob.Location()).Date()
	age := ny - dy
	if nm < dm || (nm == dm && nd < dd) {
		age--
	}
	return age
}
