package entity

import "time"

type OrganizationType = string

const (
	OrgCompany     OrganizationType = "company"
	OrgIndividual  OrganizationType = "individual"
	OrgNGO         OrganizationType = "ngo"
	OrgEducational OrganizationType = "educational"
)

// OrganizationTypes lists every accepted organization type.
var OrganizationTypes = []string{OrgCompany, OrgIndividual, OrgNGO, OrgEducational}

type Address struct {
	FullAddress string `json:"fullAddress"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
}

type OrganizerStatistics struct {
	TotalJobsPosted  int     `json:"totalJobsPosted"`
	ActiveJobs       int     `json:"activeJobs"`
	CompletedJobs    int     `json:"completedJobs"`
	TotalAmountSpent float64 `json:"totalAmountSpent"`
	TotalHires       int     `json:"totalHires"`
}

type Rating struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// OrganizerProfile is the organizer-side record linked 1:1 to a user.
type OrganizerProfile struct {
	ID               string              `json:"id"`
	UserID           string              `json:"userId"`
	OrganizationName string              `json:"organizationName"`
	OrganizationType OrganizationType    `json:"organizationType"`
	GSTNumber        *string             `json:"gstNumber"`
	Address          Address             `json:"address"`
	EscrowBalance    float64             `json:"escrowBalance"`
	Statistics       OrganizerStatistics `json:"statistics"`
	Ratings          Rating              `json:"ratings"`
	Verified         bool                `json:"verified"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// NewOrganizerProfile builds the initial organizer record; counters, balance and
// ratings start at zero and the profile starts unverified.
func NewOrganizerProfile(id, userID, name string, orgType OrganizationType, gst *string, addr Address) *OrganizerProfile {
	return &OrganizerProfile{
		ID:               id,
		UserID:           userID,
		OrganizationName: name,
		OrganizationType: orgType,
		GSTNumber:        gst,
		Address:          addr,
	}
}
