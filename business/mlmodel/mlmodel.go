// Package mlmodel loads and caches the candidate scorer's model artifact:
// weight matrices plus the feature-column order they were trained against.
// Loaded once per process per model directory; weight files changed on disk
// afterwards are not re-read until Reset is called, mirroring the teacher's discover/cache-once bookkeeping in
// app/model-mgr and the original runtime's init_runtime/get_runtime pattern.
package mlmodel

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Artifact is the cached scorer model: a small feed-forward network over the
// fixed 6-dim feature vector, plus the column order it expects.
type Artifact struct {
	FeatureColumns []string
	Hidden         *mat.Dense // hiddenSize x FeatureCount
	HiddenBias     *mat.VecDense
	Output         *mat.Dense // (1 or 2) x hiddenSize
	OutputBias     *mat.VecDense
}

// HiddenSize returns the artifact's hidden layer width.
func (a *Artifact) HiddenSize() int {
	r, _ := a.Hidden.Dims()
	return r
}

var (
	mu       sync.Mutex
	cached   *Artifact
	cachedAt string
)

// Load returns the cached artifact for modelDir, loading it on first use.
// Safe to call repeatedly; only re-reads from disk when modelDir changes
// from the last call, same bookkeeping contract as the original runtime's
// init_runtime/get_runtime globals.
func Load(modelDir string) (*Artifact, error) {
	mu.Lock()
	defer mu.Unlock()

	if cached != nil && cachedAt == modelDir {
		return cached, nil
	}

	columns, err := loadFeatureColumns(modelDir + "/feature_columns.txt")
	if err != nil {
		return nil, fmt.Errorf("loading feature columns: %w", err)
	}

	hidden, hiddenBias, err := loadLayer(modelDir+"/hidden_weights.csv", modelDir+"/hidden_bias.csv")
	if err != nil {
		return nil, fmt.Errorf("loading hidden layer: %w", err)
	}
	output, outputBias, err := loadLayer(modelDir+"/output_weights.csv", modelDir+"/output_bias.csv")
	if err != nil {
		return nil, fmt.Errorf("loading output layer: %w", err)
	}

	artifact := &Artifact{
		FeatureColumns: columns,
		Hidden:         hidden,
		HiddenBias:     hiddenBias,
		Output:         output,
		OutputBias:     outputBias,
	}
	cached = artifact
	cachedAt = modelDir
	return artifact, nil
}

// Reset drops the cache, used by tests and by a future hot-reload path.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cached = nil
	cachedAt = ""
}

func loadFeatureColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols = append(cols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("feature column file %q is empty", path)
	}
	return cols, nil
}

// loadLayer reads a dense weight matrix (rows of comma-separated floats) and
// a single-column bias vector from two CSV sidecar files.
func loadLayer(weightsPath, biasPath string) (*mat.Dense, *mat.VecDense, error) {
	rows, err := readCSVRows(weightsPath)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%q has no rows", weightsPath)
	}
	nr, nc := len(rows), len(rows[0])
	flat := make([]float64, 0, nr*nc)
	for _, row := range rows {
		if len(row) != nc {
			return nil, nil, fmt.Errorf("%q has a ragged row", weightsPath)
		}
		flat = append(flat, row...)
	}
	weights := mat.NewDense(nr, nc, flat)

	biasRows, err := readCSVRows(biasPath)
	if err != nil {
		return nil, nil, err
	}
	biasFlat := make([]float64, 0, nr)
	for _, row := range biasRows {
		biasFlat = append(biasFlat, row...)
	}
	if len(biasFlat) != nr {
		return nil, nil, fmt.Errorf("%q has %d values, expected %d", biasPath, len(biasFlat), nr)
	}
	bias := mat.NewVecDense(nr, biasFlat)

	return weights, bias, nil
}

func readCSVRows(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", path, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
