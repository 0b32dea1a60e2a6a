// Package cluster groups perceptually near-identical images by fingerprint
// similarity and picks the best-scoring member of each group.
package cluster

import (
	"math"
	"math/bits"
	"strconv"

	"go-photo-culler/pkg/models"
)

// DefaultThreshold is the minimum similarity percentage for two images to
// land in the same group.
const DefaultThreshold = 85.0

// Entry is one clustering input: an image identifier, its fingerprint, and
// its overall quality score.
type Entry struct {
	ID          int64
	Filename    string
	Fingerprint string
	Score       float64
}

// HammingDistance counts differing bits between two hex-encoded
// fingerprints. Fingerprints of unequal length are defined as infinitely
// distant (a fail-safe; real fingerprints are fixed-length). Characters that
// are not valid hex also force infinite distance.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return math.MaxInt
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		na, errA := strconv.ParseUint(string(a[i]), 16, 8)
		nb, errB := strconv.ParseUint(string(b[i]), 16, 8)
		if errA != nil || errB != nil {
			return math.MaxInt
		}
		distance += bits.OnesCount8(uint8(na ^ nb))
	}
	return distance
}

// Similarity converts Hamming distance into a percentage: 100 for identical
// fingerprints, 0 for fingerprints of unequal length.
func Similarity(a, b string) float64 {
	distance := HammingDistance(a, b)
	if distance == math.MaxInt {
		return 0
	}
	totalBits := float64(len(a) * 4)
	return math.Round((totalBits-float64(distance))/totalBits*100*100) / 100
}

// FindDuplicates partitions entries into similarity groups at or above
// threshold using greedy single-link clustering: each unassigned entry
// anchors a new group and claims every later unassigned entry similar
// enough to it. Groups with fewer than two members are discarded.
//
// The reported group similarity is the minimum anchor-to-member similarity
// accepted, a lower bound rather than a pairwise guarantee between arbitrary
// members. Comparisons are O(n²) over fingerprints, which is fine for
// batches in the hundreds to low thousands.
func FindDuplicates(entries []Entry, threshold float64) []models.DuplicateGroup {
	groups := []models.DuplicateGroup{}
	assigned := make(map[int64]bool, len(entries))

	for i := 0; i < len(entries); i++ {
		if assigned[entries[i].ID] {
			continue
		}

		members := []Entry{entries[i]}
		groupSimilarity := 100.0

		for j := i + 1; j < len(entries); j++ {
			if assigned[entries[j].ID] {
				continue
			}
			similarity := Similarity(entries[i].Fingerprint, entries[j].Fingerprint)
			if similarity >= threshold {
				members = append(members, entries[j])
				if similarity < groupSimilarity {
					groupSimilarity = similarity
				}
				assigned[entries[j].ID] = true
			}
		}

		if len(members) < 2 {
			continue
		}
		assigned[entries[i].ID] = true
		groups = append(groups, models.DuplicateGroup{
			Members:    toMembers(members),
			BestID:     bestOf(members),
			Similarity: groupSimilarity,
		})
	}

	return groups
}

// bestOf returns the ID of the highest-scoring member; ties resolve to the
// first in input order.
func bestOf(members []Entry) int64 {
	best := members[0]
	for _, m := range members[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best.ID
}

func toMembers(entries []Entry) []models.GroupMember {
	members := make([]models.GroupMember, len(entries))
	for i, e := range entries {
		members[i] = models.GroupMember{
			ID:          e.ID,
			Filename:    e.Filename,
			Fingerprint: e.Fingerprint,
			Score:       e.Score,
		}
	}
	return members
}
