package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/elfrpath/internal/config"
	"github.com/xyproto/elfrpath/internal/execfile"
)

// RunCLI dispatches to the subcommand named by args[0].
func RunCLI(args []string, cfg config.Config) error {
	subcmd := args[0]
	rest := args[1:]

	switch subcmd {
	case "show":
		return cmdShow(rest)
	case "needed":
		return cmdNeeded(rest, cfg)
	case "soname":
		return cmdSoName(rest)
	case "runpath", "rpath":
		return cmdRunPath(rest)
	case "set-runpath", "set-rpath":
		return cmdSetRunPath(rest, cfg)
	default:
		return fmt.Errorf("unknown command: %s\n\nRun 'elfrpath -h' for usage information", subcmd)
	}
}

func cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: elfrpath show <file>")
	}
	r, err := execfile.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("format:        %s\n", r.Format())
	fmt.Printf("is exec/lib:   %v\n", r.IsExecutableOrSharedLibrary())
	fmt.Printf("debug symbols: %v\n", r.ContainsDebugSymbols())
	if soname := r.SoName(); soname != "" {
		fmt.Printf("soname:        %s\n", soname)
	}
	if runpath := r.GetRunPath(); runpath != "" {
		fmt.Printf("runpath:       %s\n", runpath)
	}
	needed, err := r.GetNeededSharedLibraries()
	if err != nil {
		return err
	}
	fmt.Printf("needed:        %s\n", strings.Join(needed, ", "))
	return nil
}

func cmdNeeded(args []string, cfg config.Config) error {
	fs := flag.NewFlagSet("needed", flag.ExitOnError)
	recursive := fs.Bool("r", false, "recursively resolve needed libraries against RUNPATH/-L search directories")
	var searchDirs stringList
	fs.Var(&searchDirs, "L", "additional library search directory (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: elfrpath needed [-r] [-L dir]... <file>")
	}
	path := fs.Arg(0)

	if !*recursive {
		r, err := execfile.OpenReader(path)
		if err != nil {
			return err
		}
		defer r.Close()
		needed, err := r.GetNeededSharedLibraries()
		if err != nil {
			return err
		}
		for _, name := range needed {
			fmt.Println(name)
		}
		return nil
	}

	names, err := resolveNeededRecursive(path, searchDirs, cfg)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func cmdSoName(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: elfrpath soname <file>")
	}
	r, err := execfile.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Println(r.SoName())
	return nil
}

func cmdRunPath(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: elfrpath runpath <file>")
	}
	r, err := execfile.OpenReader(args[0])
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Println(r.GetRunPath())
	return nil
}

func cmdSetRunPath(args []string, cfg config.Config) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: elfrpath set-runpath <file> <new-runpath>")
	}
	path, newPath := args[0], args[1]

	w, err := execfile.OpenWriter(path)
	if err != nil {
		return err
	}
	if err := w.SetRunPath(cfg, newPath); err != nil {
		return err
	}
	if err := w.Save(); err != nil {
		return err
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "elfrpath: wrote RUNPATH %q to %s\n", newPath, path)
	}
	return nil
}

// resolveNeededRecursive walks the needed-library dependency graph
// breadth-first, resolving each name against the opening binary's own
// RUNPATH plus any -L directories, the way import_resolver.go walks a
// library search path for PE imports. It performs no relocation or
// symbol resolution; libraries it cannot resolve on disk are still
// reported by name, just not descended into.
func resolveNeededRecursive(path string, extraDirs []string, cfg config.Config) ([]string, error) {
	var order []string
	seen := make(map[string]bool)
	queue := []string{path}
	queueSeen := map[string]bool{path: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		r, err := execfile.OpenReader(current)
		if err != nil {
			return nil, err
		}
		needed, err := r.GetNeededSharedLibraries()
		runpath := r.GetRunPath()
		r.Close()
		if err != nil {
			return nil, err
		}

		searchDirs := append(append([]string{}, extraDirs...), strings.Split(runpath, ":")...)

		for _, name := range needed {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			if resolved := resolveLibraryPath(name, searchDirs); resolved != "" && !queueSeen[resolved] {
				queueSeen[resolved] = true
				queue = append(queue, resolved)
			}
		}
	}
	return order, nil
}

func resolveLibraryPath(name string, dirs []string) string {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
