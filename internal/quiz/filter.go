package quiz

import (
	"math/rand/v2"

	"github.com/mcq-practice/backend/internal/models"
)

// MatchingCount returns how many pool questions carry topicID. A nil topic
// matches every question.
func MatchingCount(pool []models.Question, topicID *string) int {
	if topicID == nil {
		return len(pool)
	}
	n := 0
	for _, q := range pool {
		if q.HasTopic(*topicID) {
			n++
		}
	}
	return n
}

// SelectWorkingSet picks the questions matching topicID, shuffles them and
// keeps the first count. count is floored at 1 and capped at the number of
// matches; an empty match yields an empty working set. pool is not
// modified.
func SelectWorkingSet(pool []models.Question, topicID *string, count int, rng *rand.Rand) []models.Question {
	subset := make([]models.Question, 0, len(pool))
	for _, q := range pool {
		if topicID == nil || q.HasTopic(*topicID) {
			subset = append(subset, q)
		}
	}

	shuffle(subset, rng)

	return subset[:clampCount(count, len(subset))]
}

func clampCount(count, available int) int {
	if count < 1 {
		count = 1
	}
	if count > available {
		count = available
	}
	return count
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(qs []models.Question, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
