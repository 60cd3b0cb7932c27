package arrivals

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	numberPrefix      = "ARR"
	maxNumberAttempts = 5
)

// NumberGenerator synthesizes arrival numbers of the form ARR + unix millis +
// a four digit suffix.
type NumberGenerator struct {
	now    func() time.Time
	suffix func() int
}

// NewNumberGenerator returns a generator backed by the wall clock.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{
		now:    time.Now,
		suffix: func() int { return 1000 + rand.IntN(9000) },
	}
}

// Candidate returns a fresh, unverified arrival number.
func (g *NumberGenerator) Candidate() string {
	return numberPrefix + strconv.FormatInt(g.now().UnixMilli(), 10) + strconv.Itoa(g.suffix())
}

// Fallback derives a number from a sequence value. Zero padding keeps it
// disjoint from clock based candidates, whose millisecond part never starts
// with zero.
func (g *NumberGenerator) Fallback(seq int64) string {
	return fmt.Sprintf("%s%017d", numberPrefix, seq)
}
