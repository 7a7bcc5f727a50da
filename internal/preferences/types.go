package preferences

type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeResolutionChanged
)

type Service interface {
	Get(front bool) (*Record, error)
	Update(record *Record) error
	List() ([]*Record, error)
	PhotoResolutionIndex(front bool) int
	Subscribe(f func(*Event)) func()
}

// Record holds the persisted choices for one lens facing. Resolution indices
// point into the device sizes ordered by area, largest first.
type Record struct {
	Front                bool
	PhotoResolutionIndex int
	VideoResolutionIndex int
}

type Event struct {
	Type   EventType
	Record *Record
}
