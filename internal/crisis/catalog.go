package crisis

// Weights assigns a score contribution to each catalog tier.
type Weights struct {
	High   int
	Phrase int
	Medium int
	Low    int
}

// DefaultWeights are the tuned production weights.
func DefaultWeights() Weights {
	return Weights{High: 10, Phrase: 15, Medium: 5, Low: 2}
}

// Catalog is the data half of the detector: tiered keyword lists, the
// crisis-phrase regex sources, and the negative-mood indicator list used
// by conversation pattern detection. Order within a tier is the order
// triggers are reported in, so keep it stable.
type Catalog struct {
	HighRisk      []string
	MediumRisk    []string
	LowRisk       []string
	CrisisPhrases []string // regular expressions, matched against the lowercase message
	NegativeMood  []string
	Weights       Weights
}

// DefaultCatalog returns the reference catalog used in production.
func DefaultCatalog() Catalog {
	return Catalog{
		HighRisk: []string{
			"suicide", "kill myself", "end my life", "want to die", "better off dead",
			"suicide plan", "kill me", "ending it all", "can't go on", "no point living",
		},
		MediumRisk: []string{
			"self harm", "hurt myself", "cut myself", "self injury", "self mutilation",
			"hate myself", "worthless", "burden", "hopeless", "nothing matters",
			"give up", "can't take it", "end the pain",
		},
		LowRisk: []string{
			"depressed", "sad", "lonely", "anxious", "overwhelmed", "stressed",
			"struggling", "hard time", "difficult", "exhausted", "tired of life",
		},
		CrisisPhrases: []string{
			`i want to kill myself`,
			`i am going to kill myself`,
			`planning to end my life`,
			`thinking about suicide`,
			`better off without me`,
			`nobody would miss me`,
			`world would be better without me`,
			`have a suicide plan`,
			`ready to die`,
			`can'?t live like this`,
			`nothing left to live for`,
		},
		NegativeMood: []string{
			"sad", "depressed", "hopeless", "tired", "alone", "worthless",
		},
		Weights: DefaultWeights(),
	}
}
