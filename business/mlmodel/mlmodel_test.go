package mlmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func writeModelFixture(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"feature_columns.txt": "dist_norm\nis_multimodal\nhour_norm\nspeed_norm\nastar_ratio\nmapf_ratio\n",
		"hidden_weights.csv": "0.1,0.1,0.1,0.1,0.1,0.1\n" +
			"0.2,0.2,0.2,0.2,0.2,0.2\n" +
			"0.3,0.3,0.3,0.3,0.3,0.3\n",
		"hidden_bias.csv":    "0\n0\n0\n",
		"output_weights.csv": "0.1,0.1,0.1\n0.2,0.2,0.2\n",
		"output_bias.csv":    "0\n0\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing fixture %s: %v", name, err)
		}
	}
}

func TestLoad_cachesByDirectory(t *testing.T) {
	is := is.New(t)
	Reset()
	dir := t.TempDir()
	writeModelFixture(t, dir)

	a1, err := Load(dir)
	is.NoErr(err)
	is.Equal(len(a1.FeatureColumns), 6)
	is.Equal(a1.HiddenSize(), 3)

	a2, err := Load(dir)
	is.NoErr(err)
	is.True(a1 == a2) // second Load for the same dir returns the cached pointer
}

func TestLoad_missingFeatureColumnsErrors(t *testing.T) {
	is := is.New(t)
	Reset()
	dir := t.TempDir()

	_, err := Load(dir)
	is.True(err != nil)
}
