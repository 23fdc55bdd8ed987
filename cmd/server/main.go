package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lexassist-backend/config"
	"lexassist-backend/handlers"
	"lexassist-backend/llm"
	"lexassist-backend/logger"
	"lexassist-backend/repository"
	"lexassist-backend/retrieval"
	"lexassist-backend/service"
	"lexassist-backend/session"
	"lexassist-backend/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	backups, err := storage.New(ctx, cfg.Storage.Backups)
	if err != nil {
		return fmt.Errorf("failed to initialize backup storage: %w", err)
	}
	outputs, err := storage.New(ctx, cfg.Storage.Contracts)
	if err != nil {
		return fmt.Errorf("failed to initialize contract storage: %w", err)
	}

	// Initialize repositories
	laws, err := repository.NewLawRepository(cfg.Corpus.LawsDir,
		repository.WithBackupStorage(backups),
		repository.WithLogger(log.With(map[string]interface{}{"component": "law_repository"})),
	)
	if err != nil {
		return err
	}
	stats := laws.Stats()
	log.Info("law database loaded", map[string]interface{}{
		"dir":      cfg.Corpus.LawsDir,
		"laws":     stats.TotalLaws,
		"sections": stats.TotalSections,
	})

	// Initialize model client
	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		return err
	}
	model := llm.NewClient(provider,
		llm.WithProviderName(cfg.LLM.Provider),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithMaxRetries(cfg.LLM.MaxRetries),
		llm.WithLogger(log.With(map[string]interface{}{"component": "llm", "provider": cfg.LLM.Provider})),
	)

	// Initialize services
	matcher := retrieval.NewMatcher(retrieval.Options{TopK: cfg.Retrieval.TopK, TopActs: cfg.Retrieval.TopActs})
	templates := service.DefaultPromptTemplates()
	indexes := service.NewIndexCache()

	qaService := service.NewQAService(
		service.QAWithCorpus(laws),
		service.QAWithModel(model),
		service.QAWithMatcher(matcher),
		service.QAWithIndexCache(indexes),
		service.QAWithTemplates(templates),
		service.QAWithTemperature(cfg.LLM.Temperature),
		service.QAWithLimits(cfg.Retrieval.HistoryTurns, cfg.Retrieval.StarterQuestions, cfg.Retrieval.FollowUps),
		service.QAWithLogger(log.With(map[string]interface{}{"component": "qa"})),
	)
	uploadOpts := []service.UploadOption{
		service.UploadWithModel(model),
		service.UploadWithMatcher(matcher),
		service.UploadWithTemplates(templates),
		service.UploadWithTemperature(cfg.LLM.Temperature),
		service.UploadWithLogger(log.With(map[string]interface{}{"component": "uploads"})),
	}
	documentService := service.NewDocumentService(uploadOpts...)
	analysisService := service.NewContractAnalysisService(uploadOpts...)
	contractService := service.NewContractService(
		service.ContractWithCorpus(laws),
		service.ContractWithModel(model),
		service.ContractWithMatcher(matcher),
		service.ContractWithIndexCache(indexes),
		service.ContractWithTemplates(templates),
		service.ContractWithOutputStorage(outputs),
		service.ContractWithLogger(log.With(map[string]interface{}{"component": "contracts"})),
	)
	lawService := service.NewLawService(
		service.LawWithStore(laws),
		service.LawReadOnly(cfg.Server.ReadOnly),
		service.LawWithLogger(log.With(map[string]interface{}{"component": "laws"})),
	)

	// Initialize handlers
	sessions := session.NewStore(
		session.WithIdleTTL(cfg.Session.IdleTTL),
		session.WithLogger(log.With(map[string]interface{}{"component": "sessions"})),
	)
	router := &handlers.Router{
		Sessions:         handlers.NewSessionHandler(sessions, qaService, cfg.Retrieval.DisplayKeywords),
		Documents:        handlers.NewDocumentHandler(sessions, documentService),
		ContractAnalysis: handlers.NewContractAnalysisHandler(sessions, analysisService),
		Contracts:        handlers.NewContractHandler(contractService),
		Laws:             handlers.NewLawHandler(lawService),
		Log:              log.With(map[string]interface{}{"component": "http"}),
		MaxBodyBytes:     cfg.Server.MaxBody,
	}

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", map[string]interface{}{"port": cfg.Server.Port, "read_only": cfg.Server.ReadOnly})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
