package policy

import "time"

// DefaultRetentionWindow is how long a soft-deleted memory is kept before
// it becomes eligible for permanent purge.
const DefaultRetentionWindow = 30 * 24 * time.Hour

// PurgeEligible reports whether a soft-deleted memory is past its retention
// window. A memory that is not hidden is never eligible. The boundary is
// inclusive: exactly the full window elapsed means eligible.
func PurgeEligible(hiddenAt *time.Time, now time.Time, window time.Duration) bool {
	if hiddenAt == nil {
		return false
	}
	return now.Sub(*hiddenAt) >= window
}
