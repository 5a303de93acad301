// ccg — command-line client for the Cando Command Generator.
//
// It drives the same pipeline as the server but prints the model's answer
// incrementally: the primary attempt streams server-sent-event chunks and
// falls back to the local provider when the stream breaks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/normalize"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/parse"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/prompt"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	mode := flag.String("mode", "generate", "generate|learn|explain|compare|merge|error|script")
	platform := flag.String("os", "linux", "target platform (linux|windows|macos|network|...)")
	cli := flag.String("cli", "", "target command interpreter (default: guessed from platform)")
	lang := flag.String("lang", "", "output language (en|fa)")
	level := flag.String("level", "", "knowledge level")
	errMsg := flag.String("error", "", "error message (error mode)")
	errCtx := flag.String("context", "", "error context (error mode)")
	inputA := flag.String("a", "", "first code input (compare/merge)")
	inputB := flag.String("b", "", "second code input (compare/merge)")
	raw := flag.Bool("raw", false, "print only the streamed raw text, skip the rendered result")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	task := ""
	if args := flag.Args(); len(args) > 0 {
		for i, a := range args {
			if i > 0 {
				task += " "
			}
			task += a
		}
	}

	cfg := config.Load()

	body := map[string]any{
		"mode":           *mode,
		"platform":       *platform,
		"cli":            *cli,
		"lang":           *lang,
		"knowledgeLevel": *level,
		"userRequest":    task,
		"errorMessage":   *errMsg,
		"context":        *errCtx,
		"inputA":         *inputA,
		"inputB":         *inputB,
	}

	req, err := normalize.Normalize(body, cfg.DefaultLang)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccg:", err)
		os.Exit(2)
	}
	if req.SuggestedPlatform != "" {
		fmt.Fprintf(os.Stderr, "hint: the request looks like %s, but --os says %s\n",
			req.SuggestedPlatform, req.Platform)
	}

	rt := router.New(cfg, nil)
	result, err := rt.RouteStream(context.Background(), prompt.Build(req), func(chunk string) {
		fmt.Print(chunk)
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccg:", err)
		os.Exit(1)
	}
	if *raw {
		return
	}

	parsed := parse.Parse(req.Mode, result.Content)
	if parsed == nil {
		fmt.Fprintln(os.Stderr, "ccg: the model returned an empty or malformed answer; try rephrasing")
		os.Exit(1)
	}

	fmt.Println("---")
	fmt.Println(parse.Markdown(parsed, req.CLI))
}
