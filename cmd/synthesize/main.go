package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/documents"
	"github.com/athapong/bim-synthesis/pkg/engine"
	"github.com/athapong/bim-synthesis/pkg/graph/visualizer"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/storage"
	"github.com/athapong/bim-synthesis/services"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	inputFile       = flag.String("input", "", "JSON bundle with the query and chunk answers (or sources)")
	inputDir        = flag.String("input-dir", "", "Directory of chunk files (.txt, .md, .html, .pdf)")
	question        = flag.String("query", "", "The question, when the bundle does not carry one")
	intent          = flag.String("intent", "", "Query intent: quantity, component, material, spatial, cost, relationship or property")
	queryID         = flag.String("query-id", "", "Query identifier; generated when empty")
	chunkConfidence = flag.Float64("chunk-confidence", 0.7, "Confidence assigned to chunks read from -input-dir")
	answer          = flag.Bool("answer", false, "Ask the language model about each source chunk before synthesizing")
	maxTokens       = flag.Int("max-tokens", documents.DefaultMaxTokens, "Maximum tokens per source chunk when splitting -input-dir files for -answer")
	concurrency     = flag.Int("concurrency", 4, "Maximum chunks processed at once (0 for unbounded)")
	configFile      = flag.String("config", "", "YAML configuration file")
	envFile         = flag.String("env", ".env", "Path to environment file")
	outputFile      = flag.String("output", "synthesis_result.json", "Output file path for the result")
	graphOutput     = flag.String("graph", "", "Output file for the spatial graph JSON, if one was built")
	visualize       = flag.Bool("visualize", false, "Generate an HTML visualization of the spatial graph")
	visualizeOutput = flag.String("viz-output", "spatial_graph.html", "Output file for the visualization")
	neo4jURI        = flag.String("neo4j-uri", "", "Neo4j URI to store the spatial graph in (default $NEO4J_URI)")
	neo4jDatabase   = flag.String("neo4j-database", "", "Neo4j database name")
	logLevel        = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *inputFile == "" && *inputDir == "" {
		logger.Fatal("Either -input or -input-dir must be specified")
	}
	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Warnf("Error loading env file %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fallback := model.QueryContext{
		QueryID:       *queryID,
		OriginalQuery: *question,
		Intent:        model.ParseIntent(*intent),
	}
	if fallback.QueryID == "" {
		fallback.QueryID = uuid.NewString()
	}

	bundle, err := loadInput(ctx, logger, fallback)
	if err != nil {
		logger.Fatalf("Failed to load input: %v", err)
	}
	logger.Infof("Loaded %d chunk answers and %d sources for query %s", len(bundle.Chunks), len(bundle.Sources), bundle.Query.QueryID)

	if len(bundle.Sources) > 0 {
		if !*answer {
			logger.Fatal("Input has unanswered sources; rerun with -answer")
		}
		client, err := services.DefaultClient()
		if err != nil {
			logger.Fatalf("Failed to create LLM client: %v", err)
		}
		answerer := answering.New(client, services.Model()).
			WithLogger(logger).
			WithConcurrencyLimit(*concurrency)
		answered, err := answerer.AnswerAll(ctx, bundle.Query, bundle.Sources)
		if err != nil {
			logger.Fatalf("Failed to answer chunks: %v", err)
		}
		bundle.Chunks = append(bundle.Chunks, answered...)
	}

	eng, err := engine.New(cfg, engine.WithLogger(logger), engine.WithConcurrencyLimit(*concurrency))
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}
	result, err := eng.Synthesize(ctx, bundle.Chunks, bundle.Query)
	if err != nil {
		logger.Fatalf("Synthesis failed: %v", err)
	}

	if err := storage.NewJSONStore(*outputFile).StoreResult(ctx, result); err != nil {
		logger.Fatalf("Failed to store result: %v", err)
	}
	logger.Infof("Result %s saved to %s (confidence %.2f, quality %.2f, %d conflicts)",
		result.ResultID, *outputFile, result.Confidence, result.OverallQuality, len(result.ConflictsDetected))
	for _, d := range result.Diagnostics {
		logger.Warn(d)
	}

	if *neo4jURI == "" {
		*neo4jURI = os.Getenv("NEO4J_URI")
	}
	if *graphOutput != "" || *visualize || *neo4jURI != "" {
		writeGraph(ctx, logger, result)
	}

	fmt.Println(result.Answer)
}

func writeGraph(ctx context.Context, logger *logrus.Logger, result *model.EnhancedQueryResult) {
	data, ok, err := storage.GraphFromResult(result)
	if err != nil {
		logger.Errorf("Failed to read spatial graph: %v", err)
		return
	}
	if !ok {
		logger.Warn("No spatial graph was built for this query")
		return
	}
	if *graphOutput != "" {
		if err := storage.StoreGraph(ctx, *graphOutput, data); err != nil {
			logger.Errorf("Failed to store spatial graph: %v", err)
		} else {
			logger.Infof("Spatial graph with %d nodes and %d edges saved to %s", len(data.Nodes), len(data.Edges), *graphOutput)
		}
	}
	if *neo4jURI != "" {
		store, err := storage.NewNeo4jGraphStore(*neo4jURI, os.Getenv("NEO4J_USERNAME"), os.Getenv("NEO4J_PASSWORD"), *neo4jDatabase)
		if err != nil {
			logger.Errorf("Failed to connect to Neo4j: %v", err)
		} else {
			defer store.Close()
			if err := store.WithLogger(logger).StoreGraph(ctx, result.QueryID, data); err != nil {
				logger.Errorf("Failed to store spatial graph in Neo4j: %v", err)
			}
		}
	}
	if *visualize {
		viz := visualizer.NewD3Visualizer(*visualizeOutput).WithTitle(result.OriginalQuery)
		if err := viz.Visualize(data); err != nil {
			logger.Errorf("Failed to visualize spatial graph: %v", err)
		} else {
			logger.Infof("Visualization saved to %s", *visualizeOutput)
		}
	}
}

func loadInput(ctx context.Context, logger *logrus.Logger, fallback model.QueryContext) (*storage.Bundle, error) {
	if *inputFile != "" {
		return storage.LoadBundle(ctx, *inputFile, fallback)
	}
	var chunker *documents.Chunker
	if *answer {
		chunker = documents.NewChunker(nil, *maxTokens, documents.DefaultOverlap)
	}
	loader := documents.NewLoader(chunker).WithLogger(logger)
	files, err := readInputFiles(loader, *inputDir)
	if err != nil {
		return nil, errors.Wrap(err, "read input directory")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no input files found in %s", *inputDir)
	}
	bundle := bundleFromFiles(ctx, logger, loader, files, fallback, *answer, *chunkConfidence)
	if len(bundle.Chunks) == 0 && len(bundle.Sources) == 0 {
		return nil, errors.Errorf("no readable input files in %s", *inputDir)
	}
	return bundle, nil
}

// bundleFromFiles turns the files into chunks: split sources to answer when
// asking the model, otherwise one already answered chunk per file.
// Unreadable files are skipped.
func bundleFromFiles(ctx context.Context, logger *logrus.Logger, loader *documents.Loader, files []string, query model.QueryContext, asSources bool, confidence float64) *storage.Bundle {
	bundle := &storage.Bundle{Query: query}
	for _, file := range files {
		if asSources {
			chunks, err := loader.Load(ctx, file)
			if err != nil {
				logger.Errorf("Failed to read file %s: %v", file, err)
				continue
			}
			bundle.Sources = append(bundle.Sources, chunks...)
			continue
		}
		text, err := loader.Text(ctx, file)
		if err != nil {
			logger.Errorf("Failed to read file %s: %v", file, err)
			continue
		}
		bundle.Chunks = append(bundle.Chunks, model.ChunkResult{
			ChunkID:         strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			Content:         text,
			Status:          model.ChunkStatusCompleted,
			ConfidenceScore: confidence,
		})
	}
	return bundle
}

// readInputFiles lists the supported files under inputDir in name order.
func readInputFiles(loader *documents.Loader, inputDir string) ([]string, error) {
	var files []string
	err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && loader.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
