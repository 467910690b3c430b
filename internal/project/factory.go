package project

import (
	"context"
	"strings"
)

// NewStore picks the record store: Postgres when a DATABASE_URL is configured,
// otherwise the file-backed store rooted at projectsDir. Audio artifacts live
// under projectsDir in both cases.
func NewStore(ctx context.Context, databaseURL, projectsDir string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewFileStore(projectsDir)
}
