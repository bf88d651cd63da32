package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/bincodec"
	"github.com/unkn0wn-root/bincodec/config"
	zapadapter "github.com/unkn0wn-root/bincodec/log/zap"
	"github.com/unkn0wn-root/bincodec/sink/asyncsink"
	"github.com/unkn0wn-root/bincodec/sink/vmsink"
	"github.com/unkn0wn-root/bincodec/transport/broker"
	"github.com/unkn0wn-root/bincodec/transport/httpapi"
	"github.com/unkn0wn-root/bincodec/transport/socket"
)

const shutdownGrace = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	mgr, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg := mgr.Current()

	zl, err := newZap(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck
	log := zapadapter.ZapLogger{L: zl}

	if cfgFile != "" {
		mgr.Watch(func(err error) {
			log.Warn("config reload rejected", bincodec.Fields{"error": err})
		})
		mgr.Subscribe(func(c *config.Config) {
			log.Info("config reloaded; codec and listeners keep their startup settings until restart",
				bincodec.Fields{"codec_format": c.Codec.Format})
		})
	}

	sink := asyncsink.New(vmsink.New("bincodec"), 2, 1024)
	defer sink.Close()

	opts := cfg.CodecOptions()
	opts.Logger = log
	opts.Sink = sink
	codec, err := bincodec.New[any](opts)
	if err != nil {
		return fmt.Errorf("codec: %w", err)
	}

	sock, err := socket.NewServer(socket.Options[any]{
		Codec:        codec,
		MaxFrameSize: cfg.Socket.MaxFrameSize,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	router, err := httpapi.New(httpapi.Options{Codec: codec, Logger: log})
	if err != nil {
		return fmt.Errorf("httpapi: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 3)

	apiSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	go func() {
		log.Info("http listening", bincodec.Fields{"addr": cfg.HTTP.Addr})
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	wsMux := gin.New()
	wsMux.Use(gin.Recovery())
	wsMux.GET("/ws", gin.WrapH(sock))
	wsSrv := &http.Server{Addr: cfg.Socket.Addr, Handler: wsMux}
	go func() {
		log.Info("websocket listening", bincodec.Fields{"addr": cfg.Socket.Addr})
		if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("websocket: %w", err)
		}
	}()

	var consumer *broker.Consumer[any]
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err = broker.NewConsumer(broker.ConsumerOptions[any]{
			Reader: broker.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic),
			Codec:  codec,
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		go drainTopic(ctx, consumer, sock, log)
		log.Info("kafka consumer started", bincodec.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		})
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down", nil)
	case err = <-errCh:
		log.Error("listener failed", bincodec.Fields{"error": err})
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = apiSrv.Shutdown(shCtx)
	_ = wsSrv.Shutdown(shCtx)
	_ = sock.Close()
	if consumer != nil {
		_ = consumer.Close()
	}
	return err
}

// drainTopic re-broadcasts every decodable Kafka message to the
// connected WebSocket peers. Undecodable messages are logged and
// skipped rather than halting the loop.
func drainTopic(ctx context.Context, c *broker.Consumer[any], sock *socket.Server[any], log bincodec.Logger) {
	for {
		d, err := c.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var derr *bincodec.DecodeError
			if errors.As(err, &derr) {
				log.Warn("skipping undecodable message", bincodec.Fields{
					"key":       d.Key,
					"partition": d.Partition,
					"offset":    d.Offset,
					"error":     err,
				})
				continue
			}
			log.Error("kafka fetch failed", bincodec.Fields{"error": err})
			return
		}
		if _, err := sock.Broadcast(d.Value); err != nil {
			log.Warn("broadcast failed", bincodec.Fields{"key": d.Key, "error": err})
		}
	}
}

func newZap(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
