package studio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/debug"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
)

type generateRequest struct {
	Prompt  string           `json:"prompt"`
	Holiday *holiday.Holiday `json:"holiday"`
}

type selectHolidayRequest struct {
	Holiday holiday.Holiday `json:"holiday"`
}

func (s *Studio) generateRouter() *gin.Engine {
	if !debug.IsDebugHttp() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if debug.IsDebugHttp() {
		router.Use(gin.Logger())
	}

	router.GET("/holidays", func(c *gin.Context) {
		c.JSON(http.StatusOK, holiday.Labels())
	})

	router.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Snapshot())
	})

	router.PUT("/session/holiday", func(c *gin.Context) {
		var req selectHolidayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		s.SelectHoliday(req.Holiday)
		c.JSON(http.StatusOK, s.Snapshot())
	})

	router.DELETE("/session", func(c *gin.Context) {
		if err := s.Reset(); err != nil {
			c.String(statusFor(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, s.Snapshot())
	})

	router.POST("/generate", func(c *gin.Context) {
		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		// the pipeline outlives this request
		ctx := context.WithoutCancel(c.Request.Context())

		var err error
		if req.Holiday != nil {
			_, err = s.StartGenerationFor(ctx, req.Prompt, *req.Holiday)
		} else {
			_, err = s.StartGeneration(ctx, req.Prompt)
		}
		if err != nil {
			c.String(statusFor(err), err.Error())
			return
		}

		c.JSON(http.StatusAccepted, s.Snapshot())
	})

	router.POST("/save", func(c *gin.Context) {
		result, err := s.Save(c.Request.Context())
		if err != nil {
			c.String(statusFor(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, result)
	})

	router.POST("/share", func(c *gin.Context) {
		hash, err := s.Share(c.Request.Context())
		if err != nil {
			c.String(statusFor(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{"ipfsHash": hash})
	})

	router.GET("/history", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.History())
	})

	return router
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy), errors.Is(err, ErrSaveUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrShareUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Studio) GetRouter() *gin.Engine {
	return s.apiRouter
}

func (s *Studio) StartServer(ctx context.Context) error {
	if s.apiIpPort == "" {
		slog.Info("api ip port is empty, skipping server")
		return nil
	}

	slog.Info("starting server", "port", s.apiIpPort)

	server := &http.Server{
		Addr:    s.apiIpPort,
		Handler: s.apiRouter,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	return nil
}
