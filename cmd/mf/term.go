package main

import (
	"os"
	"strconv"
)

// columnsOverride reads COLUMNS. It only resizes a real terminal; a pipe stays width 0.
func columnsOverride() int {
	n, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
