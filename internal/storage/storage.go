package storage

import "tradesync/internal/model"

// Storage defines a sink for journaled token price points.
type Storage interface {
	PutPricePoints(points []model.PricePoint) error
}
