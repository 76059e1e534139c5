package routes

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	boxControllers "github.com/atmedrano/clinibox-backend/internal/boxes/controllers"
	boxServices "github.com/atmedrano/clinibox-backend/internal/boxes/services"
	chartControllers "github.com/atmedrano/clinibox-backend/internal/charts/controllers"
	chartServices "github.com/atmedrano/clinibox-backend/internal/charts/services"
	"github.com/atmedrano/clinibox-backend/internal/common/middlewares"
	receptionControllers "github.com/atmedrano/clinibox-backend/internal/reception/controllers"
	receptionServices "github.com/atmedrano/clinibox-backend/internal/reception/services"
	"github.com/atmedrano/clinibox-backend/ws"
)

// Init wires services and controllers and registers every route. Every
// mutating route requires an authenticated identity with a clinic role;
// Assign and Finalize are professional-only.
func Init(e *echo.Echo, db *sql.DB, auditDB *gorm.DB) {
	snapshotService := chartServices.NewSnapshotService(db, auditDB)
	autosaveService := chartServices.NewAutosaveService(db)
	allocationService := boxServices.NewAllocationService(db, snapshotService)
	receptionService := receptionServices.NewReceptionService(db)

	allocationController := boxControllers.NewAllocationController(allocationService)
	chartController := chartControllers.NewChartController(autosaveService, snapshotService)
	receptionController := receptionControllers.NewReceptionController(receptionService)

	auth := middlewares.JWTMiddleware()
	anyClinicRole := middlewares.RequireRole(middlewares.RoleProfessional, middlewares.RoleReceptionist)
	professionalOnly := middlewares.RequireRole(middlewares.RoleProfessional)

	api := e.Group("/api")

	// Boxes
	boxes := api.Group("/boxes")
	boxes.GET("", allocationController.ListBoxesHandler, auth, anyClinicRole)
	boxes.POST("/assign", allocationController.AssignHandler, auth, professionalOnly)
	boxes.POST("/finalize", allocationController.FinalizeHandler, auth, professionalOnly)

	// Reception
	api.POST("/patients", receptionController.RegisterPatientHandler, auth, anyClinicRole)
	api.GET("/patients/:id", receptionController.GetPatientHandler, auth, anyClinicRole)
	api.POST("/arrivals", receptionController.CheckInHandler, auth, anyClinicRole)
	api.GET("/arrivals/waiting", receptionController.WaitingQueueHandler, auth, anyClinicRole)

	// Charts
	charts := api.Group("/charts")
	charts.GET("/:id", chartController.GetChartHandler, auth, professionalOnly)
	charts.POST("/autosave", chartController.AutosaveBatchHandler, auth, professionalOnly)
	charts.GET("/history", chartController.HistoryHandler, auth, anyClinicRole)

	// Catch-up reconciliation; read-only, no role needed beyond a valid token.
	api.GET("/sync/last-mutation", allocationController.LastMutationHandler, auth)

	// Real-time channel and metrics
	e.GET("/ws", ws.ServeWS(ws.HubInstance))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
