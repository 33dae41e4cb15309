package store

import (
	"encoding/json"
	"time"
)

// Entry is a cached payload, the JSON encoding of a source's transformed data, and the time it was fetched.
type Entry struct {
	Payload   json.RawMessage `json:"payload" bson:"payload"`
	FetchedAt time.Time       `json:"fetchedAt" bson:"fetchedAt"`
}

// Fresh reports whether e was fetched less than fresh before now.
func (e Entry) Fresh(now time.Time, fresh time.Duration) bool {
	return !e.FetchedAt.IsZero() && now.Sub(e.FetchedAt) < fresh
}
