package pipeline

// State is the progress of one unit through the driver.
type State string

const (
	Pending       State = "PENDING"
	Skipped       State = "SKIPPED"
	Fetching      State = "FETCHING"
	FetchFailed   State = "FETCH_FAILED"
	Fetched       State = "FETCHED"
	OpenFailed    State = "OPEN_FAILED"
	Opened        State = "OPENED"
	CropFailed    State = "CROP_FAILED"
	Cropped       State = "CROPPED"
	PersistFailed State = "PERSIST_FAILED"
	Persisted     State = "PERSISTED"
	Cleaned       State = "CLEANED"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case Skipped, FetchFailed, OpenFailed, CropFailed, PersistFailed, Cleaned:
		return true
	}
	return false
}

// Failed reports whether s ends a unit without an archive written by this
// run.
func (s State) Failed() bool {
	switch s {
	case FetchFailed, OpenFailed, CropFailed, PersistFailed:
		return true
	}
	return false
}
