package reconciler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/jobtrace/jobtrace-gateway/internal/models"
)

// Checksum computes a deterministic content hash over a job list, used to
// detect whether upstream data changed between polls without deep comparison.
// The list is canonicalized (sorted by job id) before hashing, and every job
// field participates via its JSON serialization, so the same set of jobs
// always yields the same checksum regardless of response order while a change
// to any field yields a different one.
func Checksum(jobs []models.Job) string {
	sorted := make([]models.Job, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	for _, j := range sorted {
		// encoding/json emits struct fields in declaration order, so the
		// per-job serialization is stable.
		b, _ := json.Marshal(j)
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TallyCounts aggregates the job list into a status-name -> count mapping.
func TallyCounts(jobs []models.Job) models.CountMap {
	counts := models.CountMap{}
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts
}
