package loader

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
)

// gltfInfluenceStats summarizes what merging discarded across a primitive.
type gltfInfluenceStats struct {
	// Truncated counts vertices that lost at least one influence to the cap.
	Truncated int

	// OverThreshold counts vertices whose discarded weight exceeded the precision threshold.
	OverThreshold int

	// WorstLoss is the largest discarded fraction of any vertex.
	WorstLoss float32
}

// gltfMergeInfluences merges every JOINTS_n/WEIGHTS_n set of a primitive into one list per vertex.
// Non-positive weights are dropped, duplicate joints are summed, and the strongest maxInfluences
// entries are kept and renormalized to sum to 1. A vertex without any positive weight gets an empty list.
//
// Parameters:
//   - joints: the joint sets, JOINTS_0 first
//   - weights: the weight sets aligned with joints
//   - maxInfluences: the per-vertex cap
//   - threshold: the discarded fraction above which a vertex counts as lossy
//
// Returns:
//   - [][]model.Influence: one list per vertex, strongest first
//   - gltfInfluenceStats: truncation statistics
func gltfMergeInfluences(joints [][][4]uint32, weights [][][4]float32, maxInfluences int, threshold float32) ([][]model.Influence, gltfInfluenceStats) {
	var stats gltfInfluenceStats
	if len(joints) == 0 {
		return nil, stats
	}

	vertexCount := len(joints[0])
	result := make([][]model.Influence, vertexCount)
	scratch := make([]model.Influence, 0, 4*len(joints))

	for v := 0; v < vertexCount; v++ {
		scratch = scratch[:0]
		for set := range joints {
			for k := 0; k < 4; k++ {
				w := weights[set][v][k]
				if w <= 0 {
					continue
				}
				scratch = gltfAddInfluence(scratch, joints[set][v][k], w)
			}
		}
		if len(scratch) == 0 {
			continue
		}

		var total float32
		for _, inf := range scratch {
			total += inf.Weight
		}

		sort.SliceStable(scratch, func(i, j int) bool {
			if scratch[i].Weight != scratch[j].Weight {
				return scratch[i].Weight > scratch[j].Weight
			}
			return scratch[i].Joint < scratch[j].Joint
		})

		kept := scratch
		if len(kept) > maxInfluences {
			kept = kept[:maxInfluences]
			stats.Truncated++
		}

		var keptSum float32
		for _, inf := range kept {
			keptSum += inf.Weight
		}
		if loss := (total - keptSum) / total; loss > 0 {
			if loss > stats.WorstLoss {
				stats.WorstLoss = loss
			}
			if loss > threshold {
				stats.OverThreshold++
			}
		}

		out := make([]model.Influence, len(kept))
		for i, inf := range kept {
			out[i] = model.Influence{Joint: inf.Joint, Weight: inf.Weight / keptSum}
		}
		result[v] = out
	}

	return result, stats
}

func gltfAddInfluence(list []model.Influence, joint uint32, weight float32) []model.Influence {
	for i := range list {
		if list[i].Joint == joint {
			list[i].Weight += weight
			return list
		}
	}
	return append(list, model.Influence{Joint: joint, Weight: weight})
}
