package mysqldb

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/atmedrano/clinibox-backend/config"
	_ "github.com/go-sql-driver/mysql"
)

var (
	db   *sql.DB
	once sync.Once
)

// Connect opens the connection to the clinical record store.
// Credentials come from the environment via config.LoadConfig.
func Connect() *sql.DB {
	once.Do(func() {
		cfg := config.LoadConfig()
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

		var err error
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			log.Fatalf("failed to open clinical store connection: %v", err)
		}

		if err = db.Ping(); err != nil {
			log.Fatalf("failed to ping clinical store: %v", err)
		}

		log.Println("Connected to the clinical record store.")
	})

	return db
}

// GetDB returns the already established connection.
func GetDB() *sql.DB {
	return db
}
