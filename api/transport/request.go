package transport

// ProposeRequest opens a collaboration on a listing or search ad.
type ProposeRequest struct {
	SubjectKind  string              `json:"subject_kind"`
	SubjectID    string              `json:"subject_id"`
	Compensation CompensationRequest `json:"compensation"`
	Message      string              `json:"message"`
}

type CompensationRequest struct {
	Kind       string  `json:"kind"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

// RespondRequest carries the owner's decision on a pending proposal.
type RespondRequest struct {
	Decision string `json:"decision"`
}

// NoteRequest appends a free-form note to an active collaboration.
type NoteRequest struct {
	Text string `json:"text"`
}

// ContractUpdateRequest replaces the contract text and additional terms.
type ContractUpdateRequest struct {
	ContractText    string `json:"contract_text"`
	AdditionalTerms string `json:"additional_terms"`
}

// ProgressRequest validates one milestone on behalf of one party.
type ProgressRequest struct {
	Step        string `json:"step"`
	Notes       string `json:"notes"`
	ValidatedBy string `json:"validated_by"`
}
