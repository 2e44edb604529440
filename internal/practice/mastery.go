package practice

import (
	"fmt"
	"sort"
	"time"

	"versekeep/internal/api"
)

// Mastery qualification thresholds.
const (
	MasteryMinAttempts     = 5
	MasteryMinAccuracy     = 0.95
	MasteryRequiredPerfect = 3
	MasteryPerfectSpacing  = 24 * time.Hour
)

// QualifiesForMastery reports whether the attempt history satisfies the
// mastery gate: at least MasteryMinAttempts attempts, overall accuracy of at
// least MasteryMinAccuracy, and at least MasteryRequiredPerfect perfect
// attempts each separated by MasteryPerfectSpacing or more.
//
// The server is authoritative; this mirror drives local feedback and tests.
func QualifiesForMastery(totalAttempts int, overallAccuracy float64, perfectAttempts []time.Time) bool {
	if totalAttempts < MasteryMinAttempts {
		return false
	}
	if overallAccuracy < MasteryMinAccuracy {
		return false
	}
	return spacedPerfectCount(perfectAttempts) >= MasteryRequiredPerfect
}

// spacedPerfectCount counts perfect attempts that are each at least
// MasteryPerfectSpacing after the previously counted one.
func spacedPerfectCount(times []time.Time) int {
	if len(times) == 0 {
		return 0
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	count := 1
	last := sorted[0]
	for _, t := range sorted[1:] {
		if t.Sub(last) >= MasteryPerfectSpacing {
			count++
			last = t
		}
	}
	return count
}

// ProgressMessage summarizes mastery progress for the practice screen.
func ProgressMessage(mp api.MasteryProgress) string {
	if mp.IsMastered {
		return "Verse mastered!"
	}
	perfect := mp.ConsecutivePerfect
	if perfect > MasteryRequiredPerfect {
		perfect = MasteryRequiredPerfect
	}
	return fmt.Sprintf("%d of %d perfect attempts · %d attempts · %.0f%% accuracy",
		perfect, MasteryRequiredPerfect, mp.TotalAttempts, mp.OverallAccuracy*100)
}
