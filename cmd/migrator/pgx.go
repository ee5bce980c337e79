package main

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/partyquiz/internal/config"
)

func pgxConfig(pg config.Postgres) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return connCfg, nil
}
