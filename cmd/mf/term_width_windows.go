//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// terminalWidth returns the visible console width of f, or 0 when f is not a console.
func terminalWidth(f *os.File) int {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(f.Fd()), &info); err != nil {
		return 0
	}
	if n := columnsOverride(); n > 0 {
		return n
	}
	return int(info.Window.Right-info.Window.Left) + 1
}
