package enrollment

import "time"

// Record is one enrolled identity: a hashed PIN and exactly one embedding.
type Record struct {
	ID        string
	PINHash   []byte
	Embedding []float64
	CreatedAt time.Time
}

// Enrolled pairs an identity with its embedding for the matcher scan.
type Enrolled struct {
	ID        string
	Embedding []float64
}
