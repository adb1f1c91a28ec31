package constants

// Sentinel values rendered when a required element could not be extracted.
const (
	UnknownTitle         = "Unknown Title"
	UnknownOfficialTitle = "Unknown Official Title"
	UnknownStudyID       = "UNKNOWN_ID"
	UnknownOrg           = "UNKNOWN_ORG"
	UnknownSponsor       = "UNKNOWN_SPONSOR"
	ErrorProcessingOrg   = "ERROR_PROCESSING"
	DefaultRespParty     = "Sponsor"
	NotProvided          = "Not provided"
	NotSpecified         = "Not specified"
	NotApplicable        = "N/A"
	EmptyDocument        = "Empty protocol document"
)

// Eligibility defaults.
const (
	DefaultGender            = "All"
	DefaultMinimumAge        = "18 Years"
	DefaultMaximumAge        = NotApplicable
	DefaultHealthyVolunteers = "No"
)

// Interventional design defaults.
const (
	DefaultInterventionalSubtype = "Treatment"
	DefaultPhase                 = NotApplicable
	DefaultAllocation            = NotApplicable
)

// Observational design defaults, applied only when the whole answer is unusable.
const (
	DefaultObservationalDesign = "Other"
	DefaultTiming              = "Other"
	DefaultBiospecimen         = "None Retained"
	DefaultNumberOfGroups      = "1"
)

// NotFoundMarker is what single-field prompts ask the model to answer with.
const NotFoundMarker = "NOT_FOUND"

// RefusalPrefixes mark answers that are apologies rather than content.
var RefusalPrefixes = []string{"I'm sorry", "I don't"}

// PRSNamespace is the default namespace of the rendered document.
const PRSNamespace = "http://clinicaltrials.gov/prs"
