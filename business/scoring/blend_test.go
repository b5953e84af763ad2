package scoring

import (
	"testing"

	"github.com/matryer/is"
)

func TestBlend_uniformFallbackWhenScoresTied(t *testing.T) {
	is := is.New(t)
	blended := Blend(Scores{0.5, 0.5}, 0, 0, false)
	is.Equal(blended[0], 0.5)
	is.Equal(blended[1], 0.5)
}

func TestBlend_knownLineNudgeFavorsMultimodal(t *testing.T) {
	is := is.New(t)
	withoutNudge := Blend(Scores{0.6, 0.4}, 0.5, 0.5, false)
	withNudge := Blend(Scores{0.6, 0.4}, 0.5, 0.5, true)
	is.True(withNudge[1] > withoutNudge[1])
}

func TestBlend_historyDominatesWhenModelDegenerate(t *testing.T) {
	is := is.New(t)
	blended := Blend(Scores{0, 0}, 0.2, 0.8, false)
	// p_model falls back to [0.5, 0.5]; history favors mapf but is only
	// weighted 0.15, so mapf component should be > 0.5 but not by much.
	is.True(blended[1] > 0.5)
	is.True(blended[1] < 0.6)
}

func TestTieBreakToMultimodal(t *testing.T) {
	is := is.New(t)
	avgSwitch := 100
	blended := Blended{0.48, 0.52}

	is.True(TieBreakToMultimodal(blended, 30, &avgSwitch))
	is.True(!TieBreakToMultimodal(blended, 90, &avgSwitch))   // delay too high
	is.True(!TieBreakToMultimodal(blended, 30, nil))          // no switch profile
	slowSwitch := 200
	is.True(!TieBreakToMultimodal(blended, 30, &slowSwitch)) // switch too slow

	farApart := Blended{0.2, 0.8}
	is.True(!TieBreakToMultimodal(farApart, 10, &avgSwitch)) // not close
}

func TestBuildFeatures_clampsAndNormalizes(t *testing.T) {
	is := is.New(t)
	f := BuildFeatures(10000, true, 23, 12, 0.3, 0.7)
	is.Equal(f[0], 1.0) // distance clamped to 1
	is.Equal(f[1], 1.0) // multimodal flag
	is.Equal(f[2], 1.0) // hour 23/23
	is.Equal(f[3], 1.0) // speed clamped to 1
	is.Equal(f[4], 0.3)
	is.Equal(f[5], 0.7)
}

func TestBuildFeatures_zeroValues(t *testing.T) {
	is := is.New(t)
	f := BuildFeatures(0, false, 0, 0, 0, 0)
	is.Equal(f[0], 0.0)
	is.Equal(f[1], 0.0)
	is.Equal(f[2], 0.0)
	is.Equal(f[3], 0.0)
}

func TestHeuristicChoice(t *testing.T) {
	is := is.New(t)
	// S5: A* 500m, MAPF 450m, delay 0 -> A* wins (500 < 450+100+0).
	is.True(!heuristicChoice(500, 450, 0))
}
