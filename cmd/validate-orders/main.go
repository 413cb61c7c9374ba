package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gunvolt24/book_orders/pkg/validate"
)

// CLI для офлайн-проверки заявок на заказ книг (JSON или JSONL).
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := validate.NewRequestValidator()
	format := validate.InputFormat(*formatStr)

	var (
		rep validate.Report
		err error
	)
	if *inputPath == "" {
		if format == validate.FormatAuto {
			format = validate.FormatJSONL
		}
		rep, err = validate.Validate(ctx, validator, os.Stdin, format, os.Stdout)
	} else {
		rep, err = validate.ValidateFile(ctx, validator, *inputPath, format, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, rep)
		os.Exit(2)
	}

	for _, p := range rep.Problems {
		fmt.Fprintf(os.Stderr, "line %d: %v\n", p.Line, p.Err)
	}
	fmt.Fprintf(os.Stderr, "validation done (%s)\n", rep)
	if rep.Invalid > 0 {
		os.Exit(1)
	}
}
