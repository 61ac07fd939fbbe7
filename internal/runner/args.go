package runner

import (
	"fmt"
	"strings"
)

// FlagsFirst reorders argv so flags precede positional arguments, which
// lets "cmd host user pass /path --keep_files a b" parse the same way as
// the flags-first form. Every flag is assumed to take a value. Flags named
// in listFlags consume all following tokens up to the next flag and are
// expanded into one occurrence per value; a list flag with no value is an
// ErrUsage. Everything after "--" is left positional. args[0] is the
// program name.
func FlagsFirst(args []string, listFlags ...string) ([]string, error) {
	if len(args) == 0 {
		return args, nil
	}
	lists := make(map[string]bool, len(listFlags))
	for _, f := range listFlags {
		lists[f] = true
	}

	flags := []string{args[0]}
	var positional []string

	for i := 1; i < len(args); i++ {
		tok := args[i]
		switch {
		case tok == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case !isFlag(tok):
			positional = append(positional, tok)
		case strings.Contains(tok, "="):
			flags = append(flags, tok)
		case isHelp(tok):
			flags = append(flags, tok)
		case lists[strings.TrimLeft(tok, "-")]:
			if i+1 >= len(args) || isFlag(args[i+1]) {
				return nil, fmt.Errorf("%w: %s expects at least one name", ErrUsage, tok)
			}
			for i+1 < len(args) && !isFlag(args[i+1]) {
				i++
				flags = append(flags, tok, args[i])
			}
		default:
			flags = append(flags, tok)
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		}
	}

	if len(positional) == 0 {
		return flags, nil
	}
	return append(append(flags, "--"), positional...), nil
}

func isFlag(tok string) bool {
	return len(tok) > 1 && strings.HasPrefix(tok, "-")
}

func isHelp(tok string) bool {
	switch strings.TrimLeft(tok, "-") {
	case "h", "help":
		return true
	}
	return false
}
