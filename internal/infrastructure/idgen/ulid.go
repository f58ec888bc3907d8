package idgen

import (
	"github.com/oklog/ulid/v2"
)

// RunIDGenerator produces the run id that tags every log line of a batch and
// keys its snapshot in Redis. Ids are ULIDs and sort by start time.
type RunIDGenerator struct{}

func NewRunIDGenerator() *RunIDGenerator {
	return &RunIDGenerator{}
}

// Generate returns a fresh run id. Ids minted within the same millisecond still increase.
func (g *RunIDGenerator) Generate() string {
	return ulid.Make().String()
}
