package vehicle

import "time"

// Class selects one of the two independent snapshot sets.
type Class string

const (
	ClassBus Class = "bus"
	ClassBRT Class = "brt"
)

func (c Class) Valid() bool { return c == ClassBus || c == ClassBRT }

// Record is the canonical persisted position of one vehicle. A class
// snapshot holds at most one Record per ID and is replaced wholesale by
// each sync cycle.
type Record struct {
	ID        string    `json:"id"`
	Plate     string    `json:"ordem"`
	Linha     string    `json:"linha"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"velocidade"`
	Timestamp time.Time `json:"timestamp"`
	Heading   *float64  `json:"heading,omitempty"` // degrees, 0 = north; nil = not reported
	StoredAt  time.Time `json:"-"`
}

// Line is read-only reference data for search/autocomplete.
type Line struct {
	Numero string `json:"numero"`
	Nome   string `json:"nome"`
	Modo   Class  `json:"-"`
}

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Polyline is one direction of a line's route shape.
type Polyline []Point
