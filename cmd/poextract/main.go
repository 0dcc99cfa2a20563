package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aurelia-jewels/po-extractor/constants"
	"github.com/aurelia-jewels/po-extractor/internal/common"
	"github.com/aurelia-jewels/po-extractor/internal/extract"
	"github.com/aurelia-jewels/po-extractor/internal/llm/openai"
	"github.com/aurelia-jewels/po-extractor/internal/po"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	clientName := pflag.String("client", "", "client display name hint")
	mappingFile := pflag.String("mapping-file", "", "path to client field-mapping text")
	expected := pflag.Int("expected", 0, "expected total item count (0 = unknown)")
	ranges := pflag.String("ranges", "", `page ranges for chunked extraction, e.g. "1-10:22,11-20:25"`)
	timeout := pflag.Duration("timeout", 10*time.Minute, "overall extraction timeout")
	pflag.Parse()

	if pflag.NArg() < 1 {
		logger.Error("usage: poextract [flags] <po-file>")
		os.Exit(2)
	}
	path := pflag.Arg(0)

	cfg := common.LoadConfig(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}

	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		logger.Error("unsupported file type", "path", path, "supported", ".pdf .xlsx .xls")
		os.Exit(2)
	}

	var mappingText string
	if *mappingFile != "" {
		b, err := os.ReadFile(*mappingFile)
		if err != nil {
			logger.Error("read mapping file", "path", *mappingFile, "error", err)
			os.Exit(1)
		}
		mappingText = string(b)
	}

	var expectedItems *int
	if *expected > 0 {
		expectedItems = expected
	}

	pageRanges, err := po.ParsePageRanges(*ranges)
	if err != nil {
		logger.Error("invalid --ranges", "error", err)
		os.Exit(2)
	}

	client := openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		Model:           cfg.OpenAI.Model,
		Temperature:     cfg.OpenAI.Temperature,
		Timeout:         cfg.OpenAI.Timeout,
		MaxOutputTokens: cfg.OpenAI.MaxOutputTokens,
	}, logger)
	orch := extract.NewOrchestrator(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rec, err := orch.ExtractPurchaseOrder(ctx, po.Request{
		Document:      doc,
		Format:        format,
		Filename:      filepath.Base(path),
		ClientName:    *clientName,
		MappingText:   mappingText,
		ExpectedItems: expectedItems,
		PageRanges:    pageRanges,
	})
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		logger.Error("encode record", "error", err)
		os.Exit(1)
	}
}
