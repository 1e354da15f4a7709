package trajectory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Layout of an evaluation directory:
//
//	<root>/gt/gt/<SEQUENCE>.txt   ground truth
//	<root>/tst/<SEQUENCE>.txt     tracker output
const (
	groundTruthDir = "gt/gt"
	testDir        = "tst"
)

// File is one discovered trajectory file.
type File struct {
	Name string
	Path string
}

// Discover lists ground truth and test files under root, each sorted by sequence name.
func Discover(root string) (gt, tst []File, err error) {
	gt, err = listDir(filepath.Join(root, filepath.FromSlash(groundTruthDir)))
	if err != nil {
		return nil, nil, err
	}
	tst, err = listDir(filepath.Join(root, testDir))
	if err != nil {
		return nil, nil, err
	}
	return gt, tst, nil
}

func listDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		out = append(out, File{Name: name, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
