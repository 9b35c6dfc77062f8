package crisis

// Hotline is a phone or text crisis service.
type Hotline struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

// OnlineResource is an informational crisis-support site.
type OnlineResource struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Resources is the static crisis-support payload attached to responses
// whenever a crisis is detected. Not user-specific.
type Resources struct {
	ImmediateHelp   []Hotline        `json:"immediateHelp"`
	OnlineResources []OnlineResource `json:"onlineResources"`
}

// DefaultResources returns the US crisis-support directory.
func DefaultResources() Resources {
	return Resources{
		ImmediateHelp: []Hotline{
			{
				Name:        "988 Suicide & Crisis Lifeline",
				Number:      "988",
				Description: "24/7 free and confidential support",
			},
			{
				Name:        "Crisis Text Line",
				Number:      "Text HOME to 741741",
				Description: "Free crisis counseling via text",
			},
			{
				Name:        "Emergency Services",
				Number:      "911",
				Description: "For immediate danger",
			},
		},
		OnlineResources: []OnlineResource{
			{
				Name:        "National Suicide Prevention Lifeline",
				URL:         "https://suicidepreventionlifeline.org/",
				Description: "Resources and support for crisis prevention",
			},
			{
				Name:        "Crisis Text Line",
				URL:         "https://www.crisistextline.org/",
				Description: "Text-based crisis intervention",
			},
			{
				Name:        "SAMHSA National Helpline",
				URL:         "https://www.samhsa.gov/find-help/national-helpline",
				Description: "Treatment referral and information service",
			},
		},
	}
}
