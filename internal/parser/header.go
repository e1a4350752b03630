package parser

import "strconv"

// HeaderNames turns a header row into unique column names. Empty cells
// become "Unnamed: N" (N is the zero-based column index) and repeated names
// get ".1", ".2", ... suffixes, skipping any suffix already taken.
func HeaderNames(raw []string) []string {
	out := make([]string, 0, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		name := h
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for k := 1; ; k++ {
				name = base + "." + strconv.Itoa(k)
				if !used[name] {
					break
				}
			}
		}
		used[name] = true
		out = append(out, name)
	}
	return out
}

// Unnamed returns the placeholder for column i, made unique against cols.
// Readers use it when a data row is wider than the header.
func Unnamed(i int, cols []string) string {
	name := "Unnamed: " + strconv.Itoa(i)
	for k := 1; contains(cols, name); k++ {
		name = "Unnamed: " + strconv.Itoa(i) + "." + strconv.Itoa(k)
	}
	return name
}

// TrimRight drops trailing empty cells.
func TrimRight(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}

// Blank reports whether every cell of row is empty.
func Blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
