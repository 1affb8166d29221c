package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/tileworld/internal/auth"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/sim"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const commandTimeout = 2 * time.Second

// WorldService - то, что REST API знает о симуляции
type WorldService interface {
	Status() sim.Status
	RequestSetTile(ctx context.Context, pos vec.TilePos, id tile.ID) error
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr       string                // адрес для запуска сервера
	Service    WorldService          // симуляция
	Signer     *auth.Signer          // проверка токенов админских маршрутов; nil - админка выключена
	Registerer prometheus.Registerer // nil - глобальный регистр
	Gatherer   prometheus.Gatherer   // nil - глобальный регистр
}

// RestServer представляет REST API симуляции: статус мира, метрики, админка
type RestServer struct {
	router  *gin.Engine
	service WorldService
	signer  *auth.Signer
	srv     *http.Server
	started time.Time
	log     *logging.Logger
}

// GenericResponse - общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	log := logging.GetComponentLogger("api")
	router.Use(otelgin.Middleware("tileworld_api"))
	router.Use(NewRequestLogger(log).Handler())

	promMw := NewPrometheusMiddleware("tileworld_api", config.Registerer)
	router.Use(promMw.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))

	server := &RestServer{
		router:  router,
		service: config.Service,
		signer:  config.Signer,
		started: time.Now(),
		log:     log,
	}
	server.srv = &http.Server{Addr: config.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	api := rs.router.Group("/api")
	{
		api.GET("/world", rs.handleWorld)
		api.GET("/entities", rs.handleEntities)
		api.GET("/entities/:id", rs.handleEntity)
	}

	if rs.signer != nil {
		admin := api.Group("/admin")
		admin.Use(rs.jwtMiddleware(), rs.adminMiddleware())
		{
			admin.POST("/tiles", rs.handleSetTile)
		}
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// WorldInfo - сводка мира без списка сущностей
type WorldInfo struct {
	WorldID  string    `json:"world_id"`
	Tick     uint64    `json:"tick"`
	Chunks   int       `json:"chunks"`
	Entities int       `json:"entities"`
	Updated  time.Time `json:"updated"`
	Uptime   string    `json:"uptime"`
}

// handleWorld возвращает сводку мира
func (rs *RestServer) handleWorld(c *gin.Context) {
	st := rs.service.Status()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние мира",
		Data: WorldInfo{
			WorldID:  st.WorldID,
			Tick:     st.Tick,
			Chunks:   st.Chunks,
			Entities: len(st.Entities),
			Updated:  st.Updated,
			Uptime:   time.Since(rs.started).Round(time.Second).String(),
		},
	})
}

// handleEntities возвращает сущности, опционально отфильтрованные по ?type=
func (rs *RestServer) handleEntities(c *gin.Context) {
	st := rs.service.Status()
	kind := c.Query("type")

	entities := make([]sim.EntityStatus, 0, len(st.Entities))
	for _, e := range st.Entities {
		if kind == "" || e.Type == kind {
			entities = append(entities, e)
		}
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список сущностей",
		Data: map[string]interface{}{
			"tick":     st.Tick,
			"entities": entities,
			"total":    len(entities),
		},
	})
}

// handleEntity возвращает сущность по ID
func (rs *RestServer) handleEntity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный ID сущности"})
		return
	}

	for _, e := range rs.service.Status().Entities {
		if e.ID == id {
			c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущность найдена", Data: e})
			return
		}
	}
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Сущность не найдена"})
}

// SetTileRequest - запрос смены тайла
type SetTileRequest struct {
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	Tile uint16 `json:"tile"`
}

// handleSetTile меняет тайл через очередь команд симуляции
func (rs *RestServer) handleSetTile(c *gin.Context) {
	var req SetTileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса: " + err.Error()})
		return
	}

	id := tile.ID(req.Tile)
	if !tile.IsValid(id) {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неизвестный тайл: " + id.String()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	pos := vec.TilePos{X: req.X, Y: req.Y}
	err := rs.service.RequestSetTile(ctx, pos, id)
	switch {
	case err == nil:
		operator, _ := c.Get("operator")
		rs.log.Info("🧱 Тайл %v -> %s (оператор %v)", pos, id, operator)
		c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тайл изменён", Data: req})
	case errors.Is(err, world.ErrChunkNotLoaded):
		c.JSON(http.StatusUnprocessableEntity, GenericResponse{Success: false, Message: "Чанк не загружен"})
	case errors.Is(err, sim.ErrNotRunning):
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Симуляция не запущена"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, GenericResponse{Success: false, Message: "Симуляция не ответила вовремя"})
	default:
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
	}
}

// handleHealth - проверка живости
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер в отдельной горутине
func (rs *RestServer) Start() {
	go func() {
		rs.log.Info("🌐 REST API доступен по адресу %s", rs.srv.Addr)
		if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log.Error("Ошибка REST API сервера: %v", err)
		}
	}()
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}
