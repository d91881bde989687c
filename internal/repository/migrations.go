package repository

import "embed"

// MigrationsFS - SQL миграции каталога
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath - каталог миграций внутри MigrationsFS
const MigrationsPath = "migrations"
