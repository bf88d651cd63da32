// Package httpapi exposes the codec over HTTP for debugging and
// operations: encode/decode endpoints, the registered format list, and
// the Prometheus metrics surface. Not a data-plane transport; payloads
// cross it base64-wrapped in JSON.
package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"

	"github.com/unkn0wn-root/bincodec"
)

type Options struct {
	// Required. The service codec; the HTTP surface is type-erased.
	Codec bincodec.Codec[any]

	// Registry backing the /v1/formats listing. nil => DefaultRegistry().
	Registry *bincodec.Registry

	Logger bincodec.Logger // if nil, logging is disabled
}

type encodeResponse struct {
	Payload string          `json:"payload"` // base64 wire bytes
	Textual bool            `json:"textual"`
	Metrics metricsResponse `json:"metrics"`
}

type metricsResponse struct {
	OriginalSize     int     `json:"original_size"`
	EncodedSize      int     `json:"encoded_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	ElapsedMicros    int64   `json:"elapsed_us"`
	Format           string  `json:"format"`
	Fallback         bool    `json:"fallback"`
	ZeroPayload      bool    `json:"zero_payload,omitempty"`
}

type decodeRequest struct {
	Payload string `json:"payload" binding:"required"` // base64 wire bytes
	Format  string `json:"format"`                     // optional explicit override
}

// New builds the router.
func New(opts Options) (*gin.Engine, error) {
	if opts.Codec == nil {
		return nil, errors.New("httpapi: codec is required")
	}
	reg := opts.Registry
	if reg == nil {
		reg = bincodec.DefaultRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = bincodec.NopLogger{}
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		metrics.WritePrometheus(c.Writer, true)
	})

	v1 := r.Group("/v1")

	v1.GET("/formats", func(c *gin.Context) {
		names := make([]string, 0, 3)
		for _, f := range reg.Formats() {
			names = append(names, f.String())
		}
		c.JSON(http.StatusOK, gin.H{
			"active":     opts.Codec.Format().String(),
			"registered": names,
		})
	})

	v1.POST("/encode", func(c *gin.Context) {
		var v any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := opts.Codec.Encode(v)
		if err != nil {
			status := codecStatus(err)
			log.Debug("http encode failed", bincodec.Fields{"err": err})
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, encodeResponse{
			Payload: base64.StdEncoding.EncodeToString(res.Bytes),
			Textual: res.Textual(),
			Metrics: metricsResponse{
				OriginalSize:     res.Metrics.OriginalSize,
				EncodedSize:      res.Metrics.EncodedSize,
				CompressionRatio: res.Metrics.CompressionRatio,
				ElapsedMicros:    res.Metrics.Elapsed.Microseconds(),
				Format:           res.Metrics.Format,
				Fallback:         res.Metrics.Fallback,
				ZeroPayload:      res.Metrics.ZeroPayload,
			},
		})
	})

	v1.POST("/decode", func(c *gin.Context) {
		var req decodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.Payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid base64"})
			return
		}

		var v any
		if req.Format != "" {
			f, err := bincodec.ParseFormat(req.Format)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			v, err = opts.Codec.DecodeAs(raw, f)
			if err != nil {
				c.JSON(codecStatus(err), gin.H{"error": err.Error()})
				return
			}
		} else {
			v, err = opts.Codec.Decode(raw)
			if err != nil {
				c.JSON(codecStatus(err), gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"value": v})
	})

	return r, nil
}

// codecStatus maps the error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500; the codec's contract says that should not
// happen.
func codecStatus(err error) int {
	var sizeErr *bincodec.SizeExceededError
	var decErr *bincodec.DecodeError
	var encErr *bincodec.EncodeError
	switch {
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, bincodec.ErrUnimplemented):
		return http.StatusNotImplemented
	case errors.Is(err, bincodec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.As(err, &decErr), errors.As(err, &encErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
