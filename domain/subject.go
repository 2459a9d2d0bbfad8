package domain

// SubjectKind distinguishes the two kinds of objects a collaboration can target.
type SubjectKind string

const (
	SubjectListing  SubjectKind = "listing"
	SubjectSearchAd SubjectKind = "search_ad"
)

// SubjectRef identifies the listing or client-search ad a collaboration is about.
// It is immutable once the collaboration is created.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r SubjectRef) Validate() error {
	if r.ID == "" {
		return NewError(ErrCodeInvalid, "missing subject id")
	}
	switch r.Kind {
	case SubjectListing, SubjectSearchAd:
		return nil
	default:
		return NewError(ErrCodeInvalid, "subject kind must be listing or search_ad")
	}
}

func (r SubjectRef) String() string {
	return string(r.Kind) + "/" + r.ID
}
