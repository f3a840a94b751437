package jobs

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	jobIDPrefix    = "batch_"
	jobIDSuffixLen = 6
	base36Digits   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewJobID returns a batch job id built from a fixed prefix, the current
// time in milliseconds, and a random base-36 suffix. Collision probability
// over a process lifetime is accepted as negligible.
func NewJobID() string {
	var b strings.Builder
	b.WriteString(jobIDPrefix)
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < jobIDSuffixLen; i++ {
		b.WriteByte(base36Digits[rand.Intn(len(base36Digits))])
	}
	return b.String()
}
