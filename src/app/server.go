package app

import (
	"context"
	"net/http"

	"github.com/openpantry/pantry/src/geocode"
	"github.com/openpantry/pantry/src/lifecycle"
	"github.com/openpantry/pantry/src/query"
	"github.com/openpantry/pantry/src/realtime"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/monitoring"
	"github.com/openpantry/pantry/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server. Serves the listings, the lifecycle operations, the
// scope websockets, the geocoding proxy, health and metrics.
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	monitor  *monitoring.Monitor
	engine   *lifecycle.Engine
	facade   *query.Facade
	geocoder *geocode.Client
	source   realtime.EventSource
	messages realtime.MessageStore
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	gin.SetMode(gin.ReleaseMode)
	if config.IsDevelopment {
		gin.SetMode(gin.DebugMode)
	}

	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	self.httpServer = &http.Server{
		Addr:    self.Config.RESTListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor *monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) WithEngine(engine *lifecycle.Engine) *Server {
	self.engine = engine
	return self
}

func (self *Server) WithFacade(facade *query.Facade) *Server {
	self.facade = facade
	return self
}

func (self *Server) WithGeocoder(geocoder *geocode.Client) *Server {
	self.geocoder = geocoder
	return self
}

func (self *Server) WithEventSource(source realtime.EventSource) *Server {
	self.source = source
	return self
}

func (self *Server) WithMessageStore(messages realtime.MessageStore) *Server {
	self.messages = messages
	return self
}

func (self *Server) registerRoutes() (err error) {
	registry := prometheus.NewRegistry()
	err = registry.Register(self.monitor.GetPrometheusCollector())
	if err != nil {
		return
	}

	if self.Config.IsDevelopment {
		pprof.Register(self.Router)
	}

	v1 := self.Router.Group("v1")
	{
		v1.GET("health", self.monitor.OnGetHealth)
		v1.GET("metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

		v1.GET("items", self.onListItems)
		v1.GET("items/nearby", self.onNearbyItems)
		v1.POST("items", self.onCreateItem)
		v1.GET("items/:id", self.onGetItemDetails)
		v1.DELETE("items/:id", self.onDeleteItem)
		v1.POST("items/:id/complete", self.onCompleteItem)

		v1.GET("claims", self.onListClaims)
		v1.POST("claims", self.onCreateClaim)
		v1.PATCH("claims/:id", self.onUpdateClaim)
		v1.DELETE("claims/:id", self.onDeleteClaim)

		v1.GET("users/:id/stats", self.onGetStats)
		v1.GET("users/:id/profile", self.onGetProfile)

		v1.GET("collaborations", self.onListCollaborations)
		v1.GET("collaborations/:id", self.onGetCollaboration)
		v1.GET("stories", self.onListStories)

		v1.GET("geocode", self.onGeocode)

		v1.GET("scopes/:kind/:id/ws", self.onScopeWebsocket)
	}

	return
}

func (self *Server) run() (err error) {
	err = self.registerRoutes()
	if err != nil {
		return
	}

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}

// actor returns the authenticated user id forwarded by the edge proxy.
func actor(c *gin.Context) string {
	return c.GetHeader("X-Pantry-User")
}
