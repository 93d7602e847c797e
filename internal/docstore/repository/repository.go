// Package repository holds the docstore backends: SQLStore (SQLite rows with
// a JSON payload column), MemoryStore (process memory) and MongoStore
// (a MongoDB database). All three implement docstore.Store.
package repository

import "github.com/jobboard/backend/go-services/pkg/logger"

var log = logger.Named("docstore/repository")
