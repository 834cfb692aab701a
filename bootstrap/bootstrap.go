package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulldump/box"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fulldump/docfile"
	"github.com/fulldump/docfile/api"
	"github.com/fulldump/docfile/codec"
	"github.com/fulldump/docfile/configuration"
	"github.com/fulldump/docfile/service"
)

var VERSION = "dev"

const shutdownTimeout = 10 * time.Second

// NewDriver builds a driver from the configuration without connecting it.
func NewDriver(c *configuration.Configuration) (*docfile.Driver, error) {

	format := c.Format
	if format == "" {
		format = codec.FormatFromFilename(c.Filename)
	}

	y := codec.NewYAML()
	y.Indent = c.Indent
	y.LineWidth = c.LineWidth
	y.NoRefs = c.NoRefs
	y.SortKeys = c.SortKeys

	cdc, err := codec.New(format, y)
	if err != nil {
		return nil, err
	}

	policy := docfile.Manual
	if c.AutoSave {
		policy = docfile.AutoSave
	}

	return docfile.New(c.Filename, cdc,
		docfile.WithPolicy(policy),
		docfile.WithFlushOnDisconnect(c.FlushOnDisconnect),
		docfile.WithLenientConnect(c.LenientConnect),
		docfile.WithLogger(log.Logger),
	), nil
}

// Bootstrap connects the store and prepares the HTTP server. start blocks
// until the server stops, stop can be called from any goroutine.
func Bootstrap(c *configuration.Configuration) (start func() error, stop func(), err error) {

	d, err := NewDriver(c)
	if err != nil {
		return nil, nil, err
	}

	if err := d.Connect(); err != nil {
		return nil, nil, err
	}

	b := api.Build(service.NewService(d), VERSION)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(log.Logger),
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		d.Disconnect()
		return nil, nil, fmt.Errorf("listen %s: %w", c.HttpAddr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	ctx, cancel := context.WithCancel(context.Background())
	stop = cancel

	start = func() error {

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(signalChan)

		g := &errgroup.Group{}

		g.Go(func() error {
			err := s.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			cancel()
			return err
		})

		g.Go(func() error {
			select {
			case sig := <-signalChan:
				log.Info().Str("signal", sig.String()).Msg("signal received")
			case <-ctx.Done():
			}

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("http shutdown")
			}

			return d.Disconnect()
		})

		return g.Wait()
	}

	return start, stop, nil
}
