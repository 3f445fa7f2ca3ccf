package storage

import (
	"context"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
)

// NoopArchive discards every entry. It is used when archiving is disabled.
type NoopArchive struct{}

var _ domain.PayloadArchive = NoopArchive{}

// Archive does nothing
func (NoopArchive) Archive(context.Context, *domain.ArchiveEntry) error {
	return nil
}
