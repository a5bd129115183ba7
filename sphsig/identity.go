package sphsig

import (
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the UTC ISO-8601 layout, second precision, used for
// sph-timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Identity is the request id and timestamp pair attached to every request.
// A fresh Identity is generated per request, so two logically identical
// payloads never share a signature.
type Identity struct {
	RequestID string
	Timestamp string
}

// NewIdentity returns a random (version 4) request id and the current UTC
// time. Failure to read the random source is returned, never masked.
func NewIdentity() (Identity, error) {
	return newIdentityAt(time.Now())
}

func newIdentityAt(t time.Time) (Identity, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		RequestID: id.String(),
		Timestamp: FormatTimestamp(t),
	}, nil
}

// Apply writes sph-request-id and sph-timestamp into p.
func (id Identity) Apply(p *ParameterSet) {
	p.Set(FieldRequestID, id.RequestID)
	p.Set(FieldTimestamp, id.Timestamp)
}

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an sph-timestamp value.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
