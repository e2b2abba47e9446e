package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// kindStyles is indexed by statusKind.
var kindStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

const labelColumn = 14

var titleCaser = cases.Title(language.English)

func (k statusKind) label() string {
	if int(k) < len(kindStyles) {
		return kindStyles[k].label
	}
	return kindStyles[statusInfo].label
}

func (k statusKind) paint(s string, colorize bool) string {
	if !colorize || int(k) >= len(kindStyles) {
		return s
	}
	return kindStyles[k].color + s + ansiReset
}

// renderStatusLine formats "Label:   [KIND] message" with the label padded to
// a fixed column.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s [%s]", labelColumn, label+":", kind.label())
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	return kind.paint(b.String(), colorize)
}

// kindForStatus maps history and result status labels to a display kind.
func kindForStatus(status string) statusKind {
	switch strings.ToLower(status) {
	case "ok":
		return statusOK
	case "cancelled":
		return statusWarn
	case "failed":
		return statusError
	}
	return statusInfo
}

func renderSectionHeader(title string, colorize bool) string {
	return statusInfo.paint("== "+strings.TrimSpace(title)+" ==", colorize)
}

func shouldColorize(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return isTerminal(file)
	}
	return false
}
