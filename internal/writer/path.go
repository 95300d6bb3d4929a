package writer

import (
	"errors"
	"fmt"
	"strings"
)

const csvSuffix = ".csv"

// ErrBadOutputPath is returned for an output path that does not end in .csv.
var ErrBadOutputPath = errors.New("writer: output path must end in .csv")

// BlockFor returns the 1-based block number for a chunk opened when count
// rows (or tables) have been seen.
func BlockFor(count, limit int) int {
	return count/limit + 1
}

// ChunkPath inserts "_<block>" before the .csv suffix of base:
// ChunkPath("out/orders.csv", 2) == "out/orders_2.csv".
func ChunkPath(base string, block int) (string, error) {
	stem, ok := strings.CutSuffix(base, csvSuffix)
	if !ok || stem == "" {
		return "", fmt.Errorf("%w: %q", ErrBadOutputPath, base)
	}
	return fmt.Sprintf("%s_%d%s", stem, block, csvSuffix), nil
}
