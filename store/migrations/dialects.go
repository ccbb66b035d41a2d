package migrations

import (
	"fmt"

	"github.com/runwayhq/runway/store"
)

func NewPostgresDialectTemplate() *DialectTemplate {
	return &DialectTemplate{
		IntegerPrimaryKey: "SERIAL PRIMARY KEY",
		Timestamp:         "timestamp without time zone",
	}
}

func NewSqliteDialectTemplate() *DialectTemplate {
	return &DialectTemplate{
		IntegerPrimaryKey: "integer NOT NULL PRIMARY KEY AUTOINCREMENT",
		Timestamp:         "timestamp",
	}
}

func GetDialectForDriver(driver store.DBDriver) (*DialectTemplate, error) {
	switch driver {
	case store.Sqlite:
		return NewSqliteDialectTemplate(), nil
	case store.Postgres:
		return NewPostgresDialectTemplate(), nil
	}

	return nil, fmt.Errorf("error unsupported database driver: %s", driver)
}
