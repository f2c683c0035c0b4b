package analytics

import (
	"fmt"
	"reflect"
	"testing"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	return ids
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		workers   int
		wantSizes []int
	}{
		{name: "empty", items: 0, workers: 4, wantSizes: nil},
		{name: "even split", items: 8, workers: 4, wantSizes: []int{2, 2, 2, 2}},
		{name: "remainder goes first", items: 10, workers: 4, wantSizes: []int{3, 3, 2, 2}},
		{name: "fewer items than workers", items: 3, workers: 8, wantSizes: []int{1, 1, 1}},
		{name: "single worker", items: 5, workers: 1, wantSizes: []int{5}},
		{name: "zero workers treated as one", items: 5, workers: 0, wantSizes: []int{5}},
		{name: "negative workers treated as one", items: 2, workers: -3, wantSizes: []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.items)
			chunks := Partition(ids, tt.workers)

			var sizes []int
			var flat []string
			for _, c := range chunks {
				if len(c) == 0 {
					t.Error("Partition() produced an empty chunk")
				}
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}

			if !reflect.DeepEqual(sizes, tt.wantSizes) {
				t.Errorf("chunk sizes = %v, want %v", sizes, tt.wantSizes)
			}
			if len(ids) > 0 && !reflect.DeepEqual(flat, ids) {
				t.Errorf("concatenated chunks = %v, want %v", flat, ids)
			}
		})
	}
}
