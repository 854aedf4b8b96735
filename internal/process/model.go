package process

// Outcome codes for a service-of-process attempt.
const (
	OutcomeServed      = "served"
	OutcomeRefused     = "refused"
	OutcomeNotFound    = "not_found"
	OutcomeUnreachable = "unreachable"
)

var validOutcomes = map[string]bool{
	OutcomeServed:      true,
	OutcomeRefused:     true,
	OutcomeNotFound:    true,
	OutcomeUnreachable: true,
}

// GPSFix is the device location captured at the moment of the attempt.
type GPSFix struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"` // metres
}

// EvidenceItem describes one captured evidence artefact. Ref is an opaque
// storage reference; the ledger never dereferences it.
type EvidenceItem struct {
	Kind string `json:"kind"` // photo, signature, video, document
	Ref  string `json:"ref"`
}

// AttemptInput is a caller-built service attempt, before sealing.
type AttemptInput struct {
	InstructionID string         `json:"instruction_id"`
	GPS           GPSFix         `json:"gps"`
	Outcome       string         `json:"outcome"`
	Notes         string         `json:"notes"`
	Items         []EvidenceItem `json:"items"`
}
