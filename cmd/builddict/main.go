// Command builddict builds pronunciation dictionaries from a raw dump
// (Kaikki JSONL or the CMU Pronouncing Dictionary), one file per language.
//
// Flags override the YAML/ENV configuration:
//
//	--config      path to YAML config file (default: $CONFIG_PATH or ./config.yaml)
//	--lang        comma-separated language codes
//	--source      kaikki or cmu
//	--input       path to the raw dump
//	--output-dir  directory for the exported dictionaries
//	--format      tsv or json
//	--curated     path to a curated metadata YAML replacing the bundled table
//	--persist     also store dictionaries and issues in PostgreSQL
//	--dry-run     build without exporting or persisting
//	--version     print the version and exit
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/prondict/internal/app"
	"github.com/heartmarshall/prondict/internal/config"
)

func main() {
	configFlag := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	langFlag := flag.String("lang", "", "comma-separated language codes")
	sourceFlag := flag.String("source", "", "raw data source: kaikki or cmu")
	inputFlag := flag.String("input", "", "path to the raw dump")
	outputFlag := flag.String("output-dir", "", "directory for exported dictionaries")
	formatFlag := flag.String("format", "", "export format: tsv or json")
	curatedFlag := flag.String("curated", "", "curated metadata YAML file")
	persistFlag := flag.Bool("persist", false, "store dictionaries and issues in PostgreSQL")
	dryRunFlag := flag.Bool("dry-run", false, "build without exporting or persisting")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(app.BuildVersion())
		return
	}

	cfg, err := config.LoadFile(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Only flags given on the command line override the loaded config.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lang":
			cfg.Build.LanguagesRaw = *langFlag
		case "source":
			cfg.Build.Source = *sourceFlag
		case "input":
			cfg.Build.InputPath = *inputFlag
		case "output-dir":
			cfg.Build.OutputDir = *outputFlag
		case "format":
			cfg.Build.Format = *formatFlag
		case "curated":
			cfg.Build.CuratedPath = *curatedFlag
		case "persist":
			cfg.Build.Persist = *persistFlag
		case "dry-run":
			cfg.Build.DryRun = *dryRunFlag
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("build failed: %v", err)
	}
}
