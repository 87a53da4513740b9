package main

// Run one analysis against the local evidence store and print the report:
//   go run ./cmd/prompttest --description "B2B payments startup in Berlin"
//   go run ./cmd/prompttest --file pitch.pdf --language es --out report.json

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"fundingsense-backend/internal/analyses"
	"fundingsense-backend/internal/bootstrap"
	"fundingsense-backend/internal/extract"
	"fundingsense-backend/internal/generation"
	"fundingsense-backend/internal/reasoning"
	"fundingsense-backend/internal/shared/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitErr(fmt.Sprintf("load config: %v", err))
	}

	description := flag.String("description", "", "Startup description")
	filePath := flag.String("file", "", "Read the description from a pdf, docx, md or txt file")
	language := flag.String("language", "", "Report language")
	outPath := flag.String("out", "", "Path to write the JSON report (optional)")
	provider := flag.String("provider", cfg.LLM.Provider, "LLM provider (openai, anthropic or empty for the deterministic report)")
	model := flag.String("model", cfg.LLM.Model, "LLM model")
	flag.Parse()

	ctx := context.Background()
	text := strings.TrimSpace(*description)
	if strings.TrimSpace(*filePath) != "" {
		text, err = extract.File(ctx, *filePath)
		if err != nil {
			exitErr(fmt.Sprintf("extract description: %v", err))
		}
	}
	if text == "" {
		exitErr("description or file is required")
	}

	cfg.LLM.Provider, cfg.LLM.Model = strings.ToLower(strings.TrimSpace(*provider)), *model
	client, err := bootstrap.NewLLMClient(cfg.LLM)
	if err != nil {
		exitErr(err.Error())
	}
	index, backing, err := bootstrap.OpenEvidence(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("open evidence: %v", err))
	}
	defer backing.Close()

	svc := analyses.NewService(
		index,
		reasoning.NewValidator(reasoning.Thresholds{High: cfg.Reasoning.HighRatio, Medium: cfg.Reasoning.MediumRatio}),
		generation.New(client, cfg.LLM.Timeout),
		analyses.NewMemoryRepo(),
		cfg.Retrieval.TopK,
	)
	report, err := svc.Run(ctx, analyses.Request{Description: text, Language: *language})
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}

	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
