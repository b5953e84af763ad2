package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/OpenTransitTools/urbanroute/business/mlmodel"
)

// ErrScoringFailed wraps any condition under which the model cannot produce
// a usable score (missing artifact, unexpected output shape). Callers treat
// it as non-fatal and fall back to the distance heuristic (§4.4).
type ErrScoringFailed struct {
	Reason string
}

func (e *ErrScoringFailed) Error() string {
	return fmt.Sprintf("scoring: %s", e.Reason)
}

// Scores is the model's raw two-candidate output: [score_astar, score_mapf].
type Scores [2]float64

// Predict runs the cached artifact's forward pass once per candidate feature
// vector (astar, then mapf): a hidden tanh layer shared by both candidates,
// then the output layer. Each candidate's output is interpreted by
// interpretOutputs: one scalar per candidate is that candidate's score, a
// 2-wide output per candidate yields that candidate's own component. A single
// scalar s for both candidates together is not produced and is not mapped to
// [1-s, s]; any other shape is a scoring error.
func Predict(artifact *mlmodel.Artifact, astarFeat, mapfFeat Features) (Scores, error) {
	if artifact == nil {
		return Scores{}, &ErrScoringFailed{Reason: "model artifact not loaded"}
	}

	astarOut, err := forward(artifact, astarFeat)
	if err != nil {
		return Scores{}, err
	}
	mapfOut, err := forward(artifact, mapfFeat)
	if err != nil {
		return Scores{}, err
	}

	scoreAstar, scoreMapf, err := interpretOutputs(astarOut, mapfOut)
	if err != nil {
		return Scores{}, err
	}
	return Scores{scoreAstar, scoreMapf}, nil
}

// forward runs one candidate's feature vector through the cached hidden and
// output layers, returning the output layer's raw values for that candidate
// (length 1 or 2, depending on how the artifact was trained).
func forward(artifact *mlmodel.Artifact, feat Features) ([]float64, error) {
	nFeat := artifact.Hidden.RawMatrix().Cols
	if nFeat != FeatureCount {
		return nil, &ErrScoringFailed{Reason: fmt.Sprintf("artifact expects %d features, have %d", nFeat, FeatureCount)}
	}

	x := mat.NewVecDense(FeatureCount, feat[:])

	var hiddenPre mat.VecDense
	hiddenPre.MulVec(artifact.Hidden, x)
	hiddenPre.AddVec(&hiddenPre, artifact.HiddenBias)
	hidden := applyTanh(&hiddenPre)

	var outputPre mat.VecDense
	outputPre.MulVec(artifact.Output, hidden)
	outputPre.AddVec(&outputPre, artifact.OutputBias)

	out := make([]float64, outputPre.Len())
	for i := range out {
		out[i] = outputPre.AtVec(i)
	}
	return out, nil
}

func applyTanh(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	for i := 0; i < v.Len(); i++ {
		out.SetVec(i, math.Tanh(v.AtVec(i)))
	}
	return out
}

// interpretOutputs implements the spec's output-shape contract: each
// candidate's forward pass is expected to have collapsed to a single scalar
// (the candidate's own raw score); two scalars give the length-2 score pair
// directly. Any other width is an unexpected shape.
func interpretOutputs(astarOut, mapfOut []float64) (float64, float64, error) {
	if len(astarOut) == 1 && len(mapfOut) == 1 {
		return astarOut[0], mapfOut[0], nil
	}
	if len(astarOut) == 2 && len(mapfOut) == 2 {
		// Trained as a single joint [astar, mapf] head replicated per
		// candidate row; take each candidate's own component.
		return astarOut[0], mapfOut[1], nil
	}
	return 0, 0, &ErrScoringFailed{
		Reason: fmt.Sprintf("unexpected model output shape: astar=%d mapf=%d", len(astarOut), len(mapfOut)),
	}
}
