package handlers

import (
	"net/http"
	"time"

	"lexassist-backend/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the handlers to their routes
type Router struct {
	Sessions         *SessionHandler
	Documents        *DocumentHandler
	ContractAnalysis *ContractAnalysisHandler
	Contracts        *ContractHandler
	Laws             *LawHandler
	Log              logger.Logger
	MaxBodyBytes     int64
}

// Engine builds the gin engine with every API route registered
func (rt *Router) Engine() *gin.Engine {
	log := rt.Log
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), limitBody(rt.MaxBodyBytes))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Session and Q&A endpoints
		api.POST("/sessions", rt.Sessions.CreateSession)
		api.DELETE("/sessions/:id", rt.Sessions.ResetSession)
		api.GET("/sessions/:id/history", rt.Sessions.GetHistory)
		api.GET("/sessions/:id/starter-questions", rt.Sessions.GetStarterQuestions)
		api.POST("/sessions/:id/ask", rt.Sessions.Ask)

		// Uploaded document endpoints
		api.POST("/sessions/:id/document", rt.Documents.LoadDocument)
		api.POST("/sessions/:id/document/ask", rt.Documents.AskDocument)
		api.POST("/sessions/:id/document/summarize", rt.Documents.SummarizeDocument)
		api.POST("/sessions/:id/document/clauses", rt.Documents.KeyClauses)
		api.DELETE("/sessions/:id/document", rt.Documents.RemoveDocument)

		// Uploaded contract endpoints
		api.POST("/sessions/:id/contract", rt.ContractAnalysis.LoadContract)
		api.POST("/sessions/:id/contract/query", rt.ContractAnalysis.QueryContract)
		api.POST("/sessions/:id/contract/analyze/:template", rt.ContractAnalysis.AnalyzeContract)
		api.DELETE("/sessions/:id/contract", rt.ContractAnalysis.RemoveContract)
		api.GET("/contracts/analyses", rt.ContractAnalysis.ListAnalyses)

		// Contract drafting endpoints
		api.GET("/contracts/types", rt.Contracts.ListContractTypes)
		api.POST("/contracts/generate", rt.Contracts.GenerateContract)
		api.GET("/contracts/outputs", rt.Contracts.ListOutputs)
		api.GET("/contracts/outputs/:name", rt.Contracts.DownloadOutput)
		api.DELETE("/contracts/outputs/:name", rt.Contracts.DeleteOutput)

		// Law database endpoints
		api.GET("/laws", rt.Laws.ListLaws)
		api.GET("/laws/stats", rt.Laws.GetStats)
		api.GET("/laws/backups", rt.Laws.ListBackups)
		api.GET("/laws/backups/:name", rt.Laws.DownloadBackup)
		api.GET("/laws/:key", rt.Laws.GetLaw)
		api.POST("/laws", rt.Laws.CreateLaw)
		api.POST("/laws/:key/compare", rt.Laws.CompareLaw)
		api.PUT("/laws/:key", rt.Laws.UpdateLaw)
		api.DELETE("/laws/:key", rt.Laws.DeleteLaw)
	}
	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", fields)
			return
		}
		log.Debug("request handled", fields)
	}
}

// limitBody caps request bodies at n bytes; n <= 0 leaves them unlimited
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
