package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yRedskull/jsrender"
	"github.com/yRedskull/jsrender/ginjs"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve javascript assets and pages over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	_ = a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func newEngine(m *jsrender.Module, index string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	ginjs.Register(r, m, log)
	if index != "" {
		r.GET("/", func(c *gin.Context) {
			m.Renderer().RenderPage(c, http.StatusOK, index, nil)
		})
	}
	return r
}

func serve(ctx context.Context, a *app) error {
	if a.v.GetBool("debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	m, err := buildModule(a.v, a.log)
	if err != nil {
		return err
	}

	index := ""
	if a.v.GetString("tpl.pages") != "" {
		a.v.SetDefault("http.index", "index")
		index = a.v.GetString("http.index")
	}
	srv := &http.Server{
		Addr:              a.v.GetString("http.addr"),
		Handler:           newEngine(m, index, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if gin.IsDebugging() {
		// pages are re-parsed per request in debug mode
		m.Renderer().DisableCache()
	}
	if gin.IsDebugging() && m.RootDir() != "" {
		go func() {
			if err := m.Watch(ctx); err != nil {
				a.log.Warn("file watching stopped", zap.Error(err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
