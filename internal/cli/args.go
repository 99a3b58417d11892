package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klauern/treesync/internal/model"
)

// robocopySwitches maps argument-less Robocopy switches to their flags.
var robocopySwitches = map[string]string{
	"/S":         "--subdirs",
	"/E":         "--empty-dirs",
	"/Z":         "--restartable",
	"/B":         "--backup",
	"/PURGE":     "--purge",
	"/MIR":       "--mirror",
	"/MOV":       "--mov",
	"/MOVE":      "--move",
	"/L":         "--list-only",
	"/NP":        "--no-progress",
	"/NFL":       "--no-file-list",
	"/EMPTY":     "--empty-files",
	"/CHILDONLY": "--child-only",
	"/SHRED":     "--shred",
	"/MT":        "--threads=8",
}

// robocopyValues maps Robocopy switches of the form /X:value to a function
// building the flag.
var robocopyValues = map[string]func(value string) (string, error){
	"/MT:":  numericFlag("threads", ""),
	"/R:":   numericFlag("retries", ""),
	"/W:":   numericFlag("wait", "s"),
	"/LOG:": textFlag("log"),
	"/A+:":  textFlag("attr-add"),
	"/A-:":  textFlag("attr-remove"),
}

// TranslateArgs rewrites Robocopy-style switches in args into the equivalent
// flags. Switches are matched case-insensitively. The translated flags are
// placed right after the program name, ahead of every other argument, and
// all remaining arguments keep their order.
//
// An argument is a switch only if it names one exactly, so a path such as
// /data/src passes through untouched.
func TranslateArgs(args []string) ([]string, error) {
	if len(args) == 0 {
		return args, nil
	}

	var flags, rest []string
	var errs model.ArgumentErrors
	for _, arg := range args[1:] {
		flag, ok, err := translate(arg)
		switch {
		case err != nil:
			errs = append(errs, err)
		case ok:
			flags = append(flags, flag)
		default:
			rest = append(rest, arg)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	out := make([]string, 0, len(args))
	out = append(out, args[0])
	out = append(out, flags...)
	out = append(out, rest...)
	return out, nil
}

// translate converts one argument. ok is false when arg is not a switch.
func translate(arg string) (flag string, ok bool, err error) {
	if !strings.HasPrefix(arg, "/") {
		return "", false, nil
	}
	upper := strings.ToUpper(arg)
	if f, found := robocopySwitches[upper]; found {
		return f, true, nil
	}
	for prefix, build := range robocopyValues {
		if !strings.HasPrefix(upper, prefix) {
			continue
		}
		f, err := build(arg[len(prefix):])
		if err != nil {
			return "", false, &model.ArgumentError{Field: strings.TrimSuffix(prefix, ":"), Message: err.Error()}
		}
		return f, true, nil
	}
	return "", false, nil
}

func numericFlag(name, unit string) func(string) (string, error) {
	return func(value string) (string, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("expected a non-negative number, got %q", value)
		}
		return fmt.Sprintf("--%s=%d%s", name, n, unit), nil
	}
}

func textFlag(name string) func(string) (string, error) {
	return func(value string) (string, error) {
		if value == "" {
			return "", fmt.Errorf("missing value")
		}
		return fmt.Sprintf("--%s=%s", name, value), nil
	}
}
