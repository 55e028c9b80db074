package repository

import "embed"

// MigrationsFS - SQL миграции каталога, зашитые в бинарь.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath - путь внутри MigrationsFS.
const MigrationsPath = "migrations"
