// elfrpath inspects and edits the dynamic-linking attributes of ELF
// executables and shared libraries, and reads the equivalent
// information out of PE images: needed libraries, SONAME, and
// RUNPATH/RPATH.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/elfrpath/internal/config"
)

const versionString = "elfrpath 0.1.0"

func main() {
	var version = flag.Bool("version", false, "print version information and exit")
	var verbose = flag.Bool("v", false, "verbose mode")
	flag.Usage = printUsage
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	cfg := config.FromEnvironment()
	if *verbose {
		cfg.Verbose = true
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if err := RunCLI(args, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "elfrpath: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `elfrpath - inspect and edit ELF/PE dynamic-linking attributes

Usage:
  elfrpath show <file>                 print format and dynamic-linking summary
  elfrpath needed [-r] <file>          list needed shared libraries (DT_NEEDED / DLL imports)
  elfrpath soname <file>               print DT_SONAME
  elfrpath runpath <file>              print DT_RUNPATH/DT_RPATH
  elfrpath set-runpath <file> <path>   rewrite DT_RUNPATH/DT_RPATH in place

Flags:
`)
	flag.PrintDefaults()
}
