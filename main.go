package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/atmedrano/clinibox-backend/config"
	chartModels "github.com/atmedrano/clinibox-backend/internal/charts/models"
	"github.com/atmedrano/clinibox-backend/internal/routes"
	"github.com/atmedrano/clinibox-backend/pkg/storage/auditdb"
	"github.com/atmedrano/clinibox-backend/pkg/storage/mysqldb"
)

func main() {
	cfg := config.LoadConfig()
	db := mysqldb.Connect()
	auditDB := auditdb.Connect()

	if err := auditDB.AutoMigrate(&chartModels.VisitSnapshot{}); err != nil {
		log.Fatalf("failed to migrate audit store: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	routes.Init(e, db, auditDB)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Server listening on port %s...", port)
	log.Fatal(e.Start(":" + port))
}
