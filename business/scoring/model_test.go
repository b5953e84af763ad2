package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/OpenTransitTools/urbanroute/business/mlmodel"
)

func writeScalarArtifact(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"feature_columns.txt": "dist_norm\nis_multimodal\nhour_norm\nspeed_norm\nastar_ratio\nmapf_ratio\n",
		"hidden_weights.csv": "0.1,0.1,0.1,0.1,0.1,0.1\n" +
			"0.2,0.2,0.2,0.2,0.2,0.2\n",
		"hidden_bias.csv":    "0\n0\n",
		"output_weights.csv": "0.5,0.5\n", // single output row -> scalar per candidate
		"output_bias.csv":    "0\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
}

func TestPredict_scalarOutputsInterpretedAsScorePair(t *testing.T) {
	is := is.New(t)
	mlmodel.Reset()
	dir := t.TempDir()
	writeScalarArtifact(t, dir)

	artifact, err := mlmodel.Load(dir)
	is.NoErr(err)

	astarFeat := BuildFeatures(1000, false, 12, 3, 0.5, 0.5)
	mapfFeat := BuildFeatures(800, true, 12, 3, 0.5, 0.5)

	scores, err := Predict(artifact, astarFeat, mapfFeat)
	is.NoErr(err)
	is.True(scores[0] != scores[1]) // different feature vectors, different scores
}

func TestPredict_nilArtifactIsScoringError(t *testing.T) {
	is := is.New(t)
	_, err := Predict(nil, Features{}, Features{})
	is.True(err != nil)
	_, ok := err.(*ErrScoringFailed)
	is.True(ok)
}
