package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrIncompleteModel is returned when only one of the two model files exists.
var ErrIncompleteModel = errors.New("classifier: vocabulary and weights must be provided together")

// Load reads the vocabulary and weights JSON files. When neither path is set or
// neither file exists it returns an empty model and no error, which keeps
// scoring on the heuristic path.
func Load(vocabularyPath, weightsPath string) (*Model, error) {
	if vocabularyPath == "" && weightsPath == "" {
		return Empty(), nil
	}

	var v Vocabulary
	vErr := readJSON(vocabularyPath, &v)
	var w Weights
	wErr := readJSON(weightsPath, &w)

	vMissing := errors.Is(vErr, fs.ErrNotExist)
	wMissing := errors.Is(wErr, fs.ErrNotExist)
	switch {
	case vMissing && wMissing:
		return Empty(), nil
	case vMissing || wMissing:
		return nil, fmt.Errorf("%w: vocabulary=%q weights=%q", ErrIncompleteModel, vocabularyPath, weightsPath)
	case vErr != nil:
		return nil, vErr
	case wErr != nil:
		return nil, wErr
	}

	return New(v, w)
}

func readJSON(path string, dst any) error {
	if path == "" {
		return fs.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
