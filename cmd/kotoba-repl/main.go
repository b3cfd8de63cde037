// kotoba-repl is a local read-eval-print loop for trying command packs
// without a homeserver: it installs the packs named on the command line and
// matches each stdin line as a command.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/engine"
)

func main() {
	wordList := flag.String("words", "", "extra word list file for the spelling corpus")
	misspellings := flag.String("misspellings", "", "extra misspelling table file")
	noSpelling := flag.Bool("no-spelling", false, "disable misspelling-widened matching")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: kotoba-repl [flags] pack.yaml [pack.yaml ...]")
		os.Exit(2)
	}

	e, err := app.BuildEngine(app.EngineConfig{
		PackPaths:        flag.Args(),
		WordListPath:     *wordList,
		MisspellingsPath: *misspellings,
		DisableSpelling:  *noSpelling,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := repl(e); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func repl(e *engine.Engine) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type a command, or /quit to exit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		res, err := e.HandleCommand(ctx, line).Wait(ctx)
		switch {
		case errors.Is(err, engine.ErrNoMatch):
			if res.Response != "" {
				fmt.Println(res.Response)
			} else {
				fmt.Println("(no match)")
			}
		case errors.Is(err, engine.ErrAnswerRejected):
			fmt.Printf("[%s rejected the answer]\n", res.Name)
			if res.Response != "" {
				fmt.Println(res.Response)
			}
		case err != nil:
			fmt.Printf("error: %v\n", err)
		default:
			fmt.Printf("[%s]\n", res.Name)
			if res.Response != "" {
				fmt.Println(res.Response)
			}
		}
	}
}
