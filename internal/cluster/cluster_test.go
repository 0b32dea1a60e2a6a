package cluster

import (
	"testing"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "a1b2c3d4e5f60718", "a1b2c3d4e5f60718", 0},
		{"one bit", "0000000000000000", "0000000000000001", 1},
		{"one nibble fully flipped", "0000000000000000", "000000000000000f", 4},
		{"all bits", "0000000000000000", "ffffffffffffffff", 64},
		{"empty strings", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HammingDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("HammingDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestHammingDistanceUnequalLengths(t *testing.T) {
	d := HammingDistance("abcd", "abcdef")
	if d != int(^uint(0)>>1) {
		t.Errorf("Expected max distance for unequal lengths, got %d", d)
	}
	if s := Similarity("abcd", "abcdef"); s != 0 {
		t.Errorf("Expected similarity 0 for unequal lengths, got %f", s)
	}
}

func TestHammingDistanceInvalidHex(t *testing.T) {
	if s := Similarity("zzzzzzzzzzzzzzzz", "0000000000000000"); s != 0 {
		t.Errorf("Expected similarity 0 for invalid hex, got %f", s)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "ffffffffffffffff", "ffffffffffffffff", 100},
		{"opposite", "0000000000000000", "ffffffffffffffff", 0},
		{"one bit apart", "0000000000000000", "0000000000000001", 98.44},
		{"eight bits apart", "00000000000000ff", "0000000000000000", 87.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a, b := "a1b2c3d4e5f60718", "a1b2c3d4e5f60719"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("Expected symmetric similarity")
	}
}

func TestFindDuplicatesIdenticalFingerprints(t *testing.T) {
	entries := []Entry{
		{ID: 1, Filename: "a.jpg", Fingerprint: "aaaaaaaaaaaaaaaa", Score: 70},
		{ID: 2, Filename: "b.jpg", Fingerprint: "aaaaaaaaaaaaaaaa", Score: 90},
		{ID: 3, Filename: "c.jpg", Fingerprint: "aaaaaaaaaaaaaaaa", Score: 80},
	}

	groups := FindDuplicates(entries, DefaultThreshold)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Errorf("Expected 3 members, got %d", len(groups[0].Members))
	}
	if groups[0].Similarity != 100 {
		t.Errorf("Expected similarity 100, got %v", groups[0].Similarity)
	}
	if groups[0].BestID != 2 {
		t.Errorf("Expected best ID 2 (highest score), got %d", groups[0].BestID)
	}
}

func TestFindDuplicatesDiscardsSingletons(t *testing.T) {
	entries := []Entry{
		{ID: 1, Fingerprint: "0000000000000000", Score: 50},
		{ID: 2, Fingerprint: "ffffffffffffffff", Score: 60},
	}

	groups := FindDuplicates(entries, DefaultThreshold)
	if len(groups) != 0 {
		t.Errorf("Expected no groups for dissimilar entries, got %d", len(groups))
	}
}

func TestFindDuplicatesBestTieGoesToFirst(t *testing.T) {
	entries := []Entry{
		{ID: 5, Fingerprint: "aaaaaaaaaaaaaaaa", Score: 80},
		{ID: 6, Fingerprint: "aaaaaaaaaaaaaaaa", Score: 80},
	}

	groups := FindDuplicates(entries, DefaultThreshold)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if groups[0].BestID != 5 {
		t.Errorf("Expected tie to resolve to first entry, got %d", groups[0].BestID)
	}
}

func TestFindDuplicatesGroupSimilarityIsMinimum(t *testing.T) {
	// Second entry is 1 bit from the anchor, third is 8 bits away.
	entries := []Entry{
		{ID: 1, Fingerprint: "0000000000000000", Score: 50},
		{ID: 2, Fingerprint: "0000000000000001", Score: 60},
		{ID: 3, Fingerprint: "00000000000000ff", Score: 70},
	}

	groups := FindDuplicates(entries, 85)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if groups[0].Similarity != 87.5 {
		t.Errorf("Expected group similarity 87.5 (weakest accepted link), got %v", groups[0].Similarity)
	}
}

func TestFindDuplicatesGreedyAssignment(t *testing.T) {
	// Entry 2 is similar to both anchors but must be claimed only once.
	entries := []Entry{
		{ID: 1, Fingerprint: "0000000000000000", Score: 50},
		{ID: 2, Fingerprint: "0000000000000001", Score: 60},
		{ID: 3, Fingerprint: "0000000000000003", Score: 70},
	}

	groups := FindDuplicates(entries, 95)
	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Errorf("Expected the anchor to claim all similar entries, got %d members", len(groups[0].Members))
	}

	seen := make(map[int64]int)
	for _, g := range groups {
		for _, m := range g.Members {
			seen[m.ID]++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Entry %d assigned to %d groups", id, count)
		}
	}
}

func TestFindDuplicatesEmptyInput(t *testing.T) {
	if groups := FindDuplicates(nil, DefaultThreshold); len(groups) != 0 {
		t.Errorf("Expected no groups for empty input, got %d", len(groups))
	}
}
