package scoring

import "math"

// HistoryBlend is the weight given to historical usage ratios in the blend
// (§4.4 step 3).
const HistoryBlend = 0.15

// KnownLineNudge is added to the multimodal component when the live
// departure's route is one of the client's favored routes (§4.4 step 4,
// amount confirmed by the original implementation's KNOWN_LINE_NUDGE).
const KnownLineNudge = 0.05

// CloseMargin is the blended-probability gap below which the tie-breaker
// (§4.4 step 5) may override the argmax.
const CloseMargin = 0.10

// Blended is the final [p_astar, p_mapf] probability pair.
type Blended [2]float64

// Blend combines model scores with historical usage ratios, applies the
// known-line nudge, and renormalizes (§4.4 steps 1-4).
func Blend(scores Scores, astarRatio, mapfRatio float64, routeIsFavored bool) Blended {
	pModel := shiftAndNormalize(scores[0], scores[1])
	pHist := normalizeRatios(astarRatio, mapfRatio)

	blended := Blended{
		(1-HistoryBlend)*pModel[0] + HistoryBlend*pHist[0],
		(1-HistoryBlend)*pModel[1] + HistoryBlend*pHist[1],
	}

	if routeIsFavored {
		blended[1] = math.Min(1.0, blended[1]+KnownLineNudge)
	}

	total := blended[0] + blended[1]
	if total > 1e-9 {
		blended[0] /= total
		blended[1] /= total
	}
	return blended
}

// shiftAndNormalize shifts the model's two raw scores so the minimum is 0
// and normalizes them to a probability pair, falling back to uniform when
// degenerate (§4.4 step 1).
func shiftAndNormalize(scoreAstar, scoreMapf float64) Blended {
	min := scoreAstar
	if scoreMapf < min {
		min = scoreMapf
	}
	a := scoreAstar - min
	m := scoreMapf - min
	total := a + m
	if total <= 1e-9 {
		return Blended{0.5, 0.5}
	}
	return Blended{a / total, m / total}
}

// normalizeRatios turns historical usage ratios into a probability pair,
// falling back to uniform when both are zero (§4.4 step 2).
func normalizeRatios(astarRatio, mapfRatio float64) Blended {
	total := astarRatio + mapfRatio
	if total <= 1e-9 {
		return Blended{0.5, 0.5}
	}
	return Blended{astarRatio / total, mapfRatio / total}
}

// TieBreakToMultimodal implements §4.4 step 5: when the blended probabilities
// are within CloseMargin and the live departure is both on-time and
// quick-to-catch, force multimodal even if A* has the higher raw probability.
func TieBreakToMultimodal(blended Blended, delaySeconds int, avgSwitchSeconds *int) bool {
	margin := blended[1] - blended[0]
	if margin < 0 {
		margin = -margin
	}
	if margin >= CloseMargin {
		return false
	}
	if delaySeconds > 60 {
		return false
	}
	if avgSwitchSeconds == nil || *avgSwitchSeconds > 120 {
		return false
	}
	return true
}

// Argmax returns true if the multimodal component is strictly greater.
func (b Blended) Argmax() (multimodal bool) {
	return b[1] > b[0]
}
