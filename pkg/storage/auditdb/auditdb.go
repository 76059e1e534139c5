package auditdb

import (
	"fmt"
	"log"
	"sync"

	"github.com/atmedrano/clinibox-backend/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Connect opens the audit snapshot store. It is a separate connection with
// its own transactions: a failure here must never reach the clinical store.
// AUDIT_DB_DSN may point at a dedicated database; when empty the snapshots
// live in their own tables of the clinical database.
func Connect() *gorm.DB {
	once.Do(func() {
		cfg := config.LoadConfig()
		dsn := cfg.AuditDBDSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		}

		var err error
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			log.Fatalf("failed to open audit store connection: %v", err)
		}

		log.Println("Connected to the audit snapshot store.")
	})

	return db
}

// GetDB returns the already established connection.
func GetDB() *gorm.DB {
	return db
}
