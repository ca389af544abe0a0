package repository

import "database/sql"

// Exposed to the repository_test package, which drives services against the
// shared container and cannot import them from package repository.
var (
	CreateTestUser    = createTestUser
	CreateTestProduct = createTestProduct
)

func SharedTestDB() *sql.DB {
	return testDB
}
