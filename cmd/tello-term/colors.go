package main

import (
	"fmt"
	"strings"
)

type Color int

const (
	Bold     Color = 1
	FgRed    Color = 31
	FgGreen  Color = 32
	FgYellow Color = 33
	FgCyan   Color = 36
)

func WithColors(s string, colors ...Color) string {
	codes := make([]string, len(colors))
	for i, c := range colors {
		codes[i] = fmt.Sprint(int(c))
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", strings.Join(codes, ";"), s)
}
