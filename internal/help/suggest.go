package help

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/mobilechromeapps/apkpack/internal/cli"
)

// aliases maps words users reach for to the command that does it.
var aliases = map[string]cli.Command{
	"build":   cli.CommandPackage,
	"pack":    cli.CommandPackage,
	"sign":    cli.CommandPackage,
	"info":    cli.CommandInspect,
	"show":    cli.CommandInspect,
	"dump":    cli.CommandInspect,
	"check":   cli.CommandVerify,
	"rename":  cli.CommandEdit,
	"rewrite": cli.CommandEdit,
}

// Suggest returns the command closest to input, or "" when none is close.
func Suggest(input string) string {
	input = strings.ToLower(strings.TrimLeft(input, "-"))
	if input == "" {
		return ""
	}
	if c, ok := aliases[input]; ok {
		return string(c)
	}

	names := make([]string, len(cli.Commands))
	for i, c := range cli.Commands {
		names[i] = string(c)
	}
	if matches := fuzzy.Find(input, names); len(matches) > 0 {
		return matches[0].Str
	}

	// Typos that drop the subsequence order, e.g. "pakcage".
	best, bestDist := "", len(input)/2+1
	for _, name := range names {
		if d := distance(input, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// distance is the Levenshtein distance between a and b.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
