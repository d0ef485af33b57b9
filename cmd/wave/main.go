package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	wave "github.com/wavelang/wave/go"
)

const usage = `wave - compiler for the Wave language

Usage:
  wave --version | -V      print the version
  wave run <file>          compile and execute a source file
  wave build <file>        compile and link a source file
  wave help                show this message

Flags for run/build:
  -ast-only                print the parsed AST and stop
  -ir-only                 print the generated IR and stop
  -O <level>               optimization level [0-3]
  -target <triple>         override the target triple
  -boot-image              assemble a 512-byte boot image (build only)
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--version", "-V", "version":
		fmt.Println("wave " + wave.Version)
		return
	case "help", "--help", "-h":
		fmt.Print(usage)
		return
	case "run", "build":
	default:
		log.Fatalf("unknown command `%s` (try `wave help`)", os.Args[1])
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	astOnly := flags.Bool("ast-only", false, "Print the parsed AST and stop")
	irOnly := flags.Bool("ir-only", false, "Print the generated IR and stop")
	optimize := flags.Int("O", 0, "Optimization level [0-3]")
	target := flags.String("target", "", "Override the target triple")
	bootImage := flags.Bool("boot-image", false, "Assemble a 512-byte boot image")
	flags.Parse(os.Args[2:])

	if flags.NArg() != 1 {
		log.Fatalf("`wave %s` expects exactly one source file", command)
	}
	path := flags.Arg(0)

	cfg := wave.NewConfig()
	cfg.SetInt("compiler.optimize", *optimize)
	cfg.SetString("target.triple", *target)
	cfg.SetBool("backend.boot_image", *bootImage)

	if *astOnly {
		dumpAst(path)
		return
	}

	if *irOnly {
		ir, err := wave.CompileFile(path, cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Print(ir)
		return
	}

	switch command {
	case "build":
		out, err := wave.BuildFile(path, cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Println(out)
	case "run":
		code, err := wave.RunFile(path, cfg)
		if err != nil {
			fatal(err)
		}
		os.Exit(code)
	}
}

func dumpAst(path string) {
	resolver := wave.NewImportResolver(wave.NewRelativeImportLoader(), wave.NewHomeStdlibManager())
	items, err := resolver.ResolveFile(path)
	if err != nil {
		fatal(err)
	}
	for _, item := range items {
		fmt.Println(item)
	}
}

func fatal(err error) {
	if cerr, ok := err.(*wave.CompilerError); ok {
		fmt.Fprint(os.Stderr, cerr.Display())
		os.Exit(1)
	}
	log.Fatal(err)
}
