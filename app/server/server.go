package server

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitassist/app/api"
	"visitassist/config"
	"visitassist/engine"
	"visitassist/model"
	"visitassist/store"
	"visitassist/web"
)

var fiberConfig = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *fiber.App
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error("error shutting down server", "error", err)
		}
	}
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	index, err := s.newIndex(ctx)
	if err != nil {
		log.Fatal("error connecting to the vector index: ", err)
		return
	}

	embedder := model.NewCohereEmbedder(s.cfg.Cohere.APIURL, s.cfg.Cohere.APIKey, s.cfg.Cohere.EmbedModel)
	generator := model.NewCohereChat(s.cfg.Cohere.APIURL, s.cfg.Cohere.APIKey, s.cfg.Cohere.ChatModel)
	fetcher := web.NewGovUK(web.Config{
		URLs:    s.cfg.TopicURLs(),
		Timeout: int(s.cfg.GovUK.FetchTimeout / time.Second),
	})

	assistant := engine.New(s.cfg, index, embedder, generator, fetcher)
	if err := assistant.Initialize(ctx); err != nil {
		log.Fatal("error initializing the index collection: ", err)
		return
	}

	for _, res := range assistant.LoadAll(ctx) {
		if res.Err != nil {
			s.logger.Error("startup ingestion failed for document", "path", res.Path, "error", res.Err)
		}
	}

	var (
		app             = fiber.New(fiberConfig)
		checkHandler    = api.NewCheckHandler()
		queryHandler    = api.NewQueryHandler(assistant)
		documentHandler = api.NewDocumentHandler(assistant, s.cfg.UploadDir)
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/query", queryHandler.HandleQuery)
	apiv1.Get("/examples", queryHandler.HandleExamples)
	apiv1.Post("/documents", documentHandler.HandleUpload)
	apiv1.Post("/reload", documentHandler.HandleReload)
	apiv1.Delete("/index", documentHandler.HandleClear)

	if err := app.Listen(s.cfg.ListenAddr); err != nil {
		s.logger.Error("error starting server", "error", err.Error())
	}
}

func (s *Server) newIndex(ctx context.Context) (store.VectorIndexer, error) {
	if s.cfg.Store.Backend == "memory" {
		s.logger.Info("using in-memory vector index")
		return store.NewMemoryIndex(), nil
	}
	return store.NewPostgresIndex(ctx, s.cfg.Store.ConnString())
}
