package host

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/resonator/internal/kuramoto"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/danmuck/resonator/internal/observability"
	"github.com/danmuck/resonator/internal/protocol"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Host) newRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.InitLogger(h.cfg.Name)))
	r.Use(observability.RequestMetricsMiddleware(h.cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(h.cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(h.appeared).String(),
			"service": h.cfg.Name,
			"version": "0.0.1",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Report())
	})

	r.GET("/history", func(c *gin.Context) {
		format := kuramoto.ExportFormat(c.DefaultQuery("format", string(kuramoto.FormatJSON)))
		contentType := "application/json"
		switch format {
		case kuramoto.FormatJSON:
		case kuramoto.FormatYAML:
			contentType = "application/yaml"
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": kuramoto.ErrUnknownFormat.Error()})
			return
		}
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if err := h.ExportHistory(c.Writer, format); err != nil {
			logs.Errorf("host.Host.history export err=%v", err)
		}
	})

	r.GET("/", h.serveWS)
	r.GET("/ws", h.serveWS)
	return r
}

// serveWS upgrades a controller connection, sends it the current state and
// answers its directives until it disconnects.
func (h *Host) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Warnf("host.Host.serveWS upgrade failed remote=%q err=%v", c.Request.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(protocol.MaxMessageBytes)
	cl := &client{conn: conn, writeTimeout: h.cfg.Session.WriteTimeout}
	if !h.hub.add(cl) {
		cl.close()
		return
	}
	defer func() {
		h.hub.remove(cl)
		cl.close()
	}()
	logs.Infof("host.Host.serveWS connected remote=%q", conn.RemoteAddr().String())

	if data, err := protocol.Encode(h.State()); err == nil {
		if err := cl.write(data); err != nil {
			return
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				logs.Debugf("host.Host.serveWS read remote=%q err=%v", conn.RemoteAddr().String(), err)
			}
			logs.Infof("host.Host.serveWS disconnected remote=%q", conn.RemoteAddr().String())
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			logs.Warnf("host.Host.serveWS skipped frame err=%v", err)
			continue
		}
		reply, ok := h.Apply(msg)
		if !ok {
			continue
		}
		out, err := protocol.Encode(reply)
		if err != nil {
			logs.Errorf("host.Host.serveWS encode reply err=%v", err)
			continue
		}
		if err := cl.write(out); err != nil {
			logs.Warnf("host.Host.serveWS reply failed err=%v", err)
			return
		}
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
