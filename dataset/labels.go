package dataset

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// labelRow is one record of the tabular label file.
type labelRow struct {
	ID    string `csv:"id"`
	Label string `csv:"label"`
}

// readLabelFile parses a csv of (id, label) rows. Ids are matched to image
// filenames after appending the dataset's fixed extension.
func readLabelFile(path string) ([]labelRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []labelRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	return rows, nil
}
