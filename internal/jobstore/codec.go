package jobstore

import (
	"encoding/json"

	"github.com/kthendral/optimizehub/internal/domain"
)

// jobMarshal/jobUnmarshal are the single choke point for job-record
// (de)serialization, so the round-trip law in §8 ("Serialization of a
// result record and deserialization yields an equal record") has one
// place to hold.
func jobMarshal(job *domain.Job) ([]byte, error) {
	return json.Marshal(job)
}

func jobUnmarshal(b []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
