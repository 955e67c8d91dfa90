package reader

import (
	"fmt"
	"strconv"
	"strings"
)

// Offsets from the end of a netstat -ib data row where the byte
// counters live when no recognizable header is present. BSD netstat
// keeps Ibytes fourth-from-last and Obytes third-from-last across the
// column-count variations we have seen.
const (
	fallbackRxOffset = 4
	fallbackTxOffset = 3
)

// ParseNetstat extracts cumulative RX/TX byte totals for iface from
// netstat -ib table output. Column positions vary between netstat
// builds, so the header row is scanned for the Ibytes/Obytes column
// names; when no header is found the fixed end-relative offsets are
// used instead. An interface can appear on multiple rows (one per
// link-layer address); matching rows are summed.
func ParseNetstat(raw, iface string) (uint64, uint64, error) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return 0, 0, fmt.Errorf("%w: empty netstat output", ErrReadFailed)
	}

	headerIdx := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.ToLower(l), "name") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return parsePositional(lines, iface)
	}

	cols := strings.Fields(lines[headerIdx])
	rxIdx := columnIndex(cols, "ibytes")
	txIdx := columnIndex(cols, "obytes")
	named := rxIdx >= 0 && txIdx >= 0

	var rxTotal, txTotal uint64
	matched := false
	for _, l := range lines[headerIdx+1:] {
		parts := strings.Fields(l)
		// Without named columns the counters are located end-relative
		// per row, so short rows still parse.
		if !named {
			rxIdx = len(parts) - fallbackRxOffset
			txIdx = len(parts) - fallbackTxOffset
		}
		if rxIdx < 0 || len(parts) <= rxIdx || len(parts) <= txIdx {
			continue
		}
		if parts[0] != iface {
			continue
		}
		rx, errRx := strconv.ParseUint(parts[rxIdx], 10, 64)
		tx, errTx := strconv.ParseUint(parts[txIdx], 10, 64)
		if errRx != nil || errTx != nil {
			continue
		}
		rxTotal += rx
		txTotal += tx
		matched = true
	}
	if !matched {
		return 0, 0, fmt.Errorf("%w: interface %q not in netstat output", ErrReadFailed, iface)
	}
	return rxTotal, txTotal, nil
}

// parsePositional sums counters using end-relative offsets when the
// output carries no recognizable header row. Rows that do not parse
// are skipped.
func parsePositional(lines []string, iface string) (uint64, uint64, error) {
	var rxTotal, txTotal uint64
	matched := false
	for _, l := range lines {
		parts := strings.Fields(l)
		if len(parts) < fallbackRxOffset {
			continue
		}
		if iface != "" && parts[0] != iface {
			continue
		}
		rx, errRx := strconv.ParseUint(parts[len(parts)-fallbackRxOffset], 10, 64)
		tx, errTx := strconv.ParseUint(parts[len(parts)-fallbackTxOffset], 10, 64)
		if errRx != nil || errTx != nil {
			continue
		}
		rxTotal += rx
		txTotal += tx
		matched = true
	}
	if !matched {
		return 0, 0, fmt.Errorf("%w: no parsable counter rows for %q", ErrReadFailed, iface)
	}
	return rxTotal, txTotal, nil
}

// columnIndex finds name among cols, case-insensitively.
func columnIndex(cols []string, name string) int {
	for i, c := range cols {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
